package serde

// Serde pairs serialisation and deserialisation for one type. The name
// argument is the logical name of the destination (a state key, a topic)
// and lets schema-aware implementations resolve per-destination schemas.
type Serde[T any] interface {
	Serialiser[T]
	Deserialiser[T]
}

type Serialiser[T any] interface {
	Serialise(name string, value T) ([]byte, error)
}

type Deserialiser[T any] interface {
	Deserialise(name string, data []byte) (T, error)
}
