package serde

import (
	"google.golang.org/protobuf/proto"
)

type protobufSerde[T proto.Message] struct{}

// Protobuf returns a Serde for proto messages. T must be a pointer message
// type so Deserialise can allocate the concrete message.
func Protobuf[T proto.Message]() Serde[T] {
	return protobufSerde[T]{}
}

func (s protobufSerde[T]) Serialise(_ string, value T) ([]byte, error) {
	return proto.Marshal(value)
}

func (s protobufSerde[T]) Deserialise(_ string, data []byte) (T, error) {
	var result T
	msg := result.ProtoReflect().New().Interface().(T)
	err := proto.Unmarshal(data, msg)
	return msg, err
}
