package serde_test

import (
	"testing"

	"github.com/hugolhafner/lakecommit/serde"
	"github.com/stretchr/testify/require"
)

func TestStringSerde(t *testing.T) {
	s := serde.String()
	output, err := s.Serialise("commit-user", "job-A")
	require.NoError(t, err)

	value, err := s.Deserialise("commit-user", output)
	require.NoError(t, err)
	require.Equal(t, "job-A", value)
}

func TestBytesSerde(t *testing.T) {
	s := serde.Bytes()
	input := []byte{0x01, 0x02, 0x03}

	output, err := s.Serialise("raw", input)
	require.NoError(t, err)
	require.Equal(t, input, output)

	value, err := s.Deserialise("raw", output)
	require.NoError(t, err)
	require.Equal(t, input, value)
}

func TestJSONSerde(t *testing.T) {
	type manifest struct {
		CheckpointID int64    `json:"checkpoint_id"`
		Files        []string `json:"files"`
	}

	s := serde.JSON[manifest]()
	input := manifest{CheckpointID: 7, Files: []string{"data-0.parquet", "data-1.parquet"}}

	data, err := s.Serialise("pending", input)
	require.NoError(t, err)

	value, err := s.Deserialise("pending", data)
	require.NoError(t, err)
	require.Equal(t, input, value)
}

func TestJSONSerde_DeserialiseInvalid(t *testing.T) {
	s := serde.JSON[map[string]int]()
	_, err := s.Deserialise("pending", []byte("{not json"))
	require.Error(t, err)
}
