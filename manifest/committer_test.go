package manifest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/lakecommit/manifest"
	mockmanifest "github.com/hugolhafner/lakecommit/manifest/mock"
)

func TestCommitter_GroupByCheckpoint(t *testing.T) {
	c := manifest.NewCommitter("job-A", mockmanifest.NewSink())

	inputs := []manifest.FileCommittable{
		{CheckpointID: 1, Files: []manifest.DataFile{{Path: "a"}}},
		{CheckpointID: 2, Files: []manifest.DataFile{{Path: "b"}}},
		{CheckpointID: 1, Files: []manifest.DataFile{{Path: "c"}}},
	}

	grouped, err := c.GroupByCheckpoint(inputs)
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	require.Equal(t, []manifest.FileCommittable{inputs[0], inputs[2]}, grouped[1])
	require.Equal(t, []manifest.FileCommittable{inputs[1]}, grouped[2])
}

func TestCommitter_Combine(t *testing.T) {
	c := manifest.NewCommitter("job-A", mockmanifest.NewSink())

	combined, err := c.Combine(
		3, 1000, []manifest.FileCommittable{
			{CheckpointID: 3, Files: []manifest.DataFile{{Path: "a", RowCount: 10}}},
			{CheckpointID: 3, Files: []manifest.DataFile{{Path: "b", RowCount: 20}}},
		},
	)
	require.NoError(t, err)
	require.Equal(t, "job-A", combined.CommitUser)
	require.Equal(t, int64(3), combined.CheckpointID)
	require.Equal(t, int64(1000), combined.Watermark)
	require.Equal(
		t,
		[]manifest.DataFile{{Path: "a", RowCount: 10}, {Path: "b", RowCount: 20}},
		combined.Files,
	)
}

func TestCommitter_CombineRejectsMissingPath(t *testing.T) {
	c := manifest.NewCommitter("job-A", mockmanifest.NewSink())

	_, err := c.Combine(
		1, 0, []manifest.FileCommittable{
			{CheckpointID: 1, Files: []manifest.DataFile{{Path: ""}}},
		},
	)
	require.Error(t, err)
}

func TestCommitter_CommitInOrder(t *testing.T) {
	sink := mockmanifest.NewSink()
	c := manifest.NewCommitter("job-A", sink)

	err := c.Commit(
		context.Background(), []manifest.ManifestCommittable{
			{CommitUser: "job-A", CheckpointID: 1},
			{CommitUser: "job-A", CheckpointID: 2},
		},
	)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, sink.AppliedCheckpoints())
}

func TestCommitter_CommitTwiceIsIdempotentAtSink(t *testing.T) {
	sink := mockmanifest.NewSink()
	c := manifest.NewCommitter("job-A", sink)

	batch := []manifest.ManifestCommittable{{CommitUser: "job-A", CheckpointID: 1}}
	require.NoError(t, c.Commit(context.Background(), batch))
	require.NoError(t, c.Commit(context.Background(), batch))

	require.Equal(t, []int64{1}, sink.AppliedCheckpoints())
}

func TestCommitter_CommitPropagatesSinkError(t *testing.T) {
	sinkErr := errors.New("lake unavailable")
	sink := mockmanifest.NewSink(
		mockmanifest.WithCommitError(
			func(committable manifest.ManifestCommittable) error {
				if committable.CheckpointID == 2 {
					return sinkErr
				}
				return nil
			},
		),
	)
	c := manifest.NewCommitter("job-A", sink)

	err := c.Commit(
		context.Background(), []manifest.ManifestCommittable{
			{CommitUser: "job-A", CheckpointID: 1},
			{CommitUser: "job-A", CheckpointID: 2},
		},
	)
	require.ErrorIs(t, err, sinkErr)
	require.Equal(t, []int64{1}, sink.AppliedCheckpoints())
}

func TestCommitter_CloseIdempotent(t *testing.T) {
	sink := mockmanifest.NewSink()
	c := manifest.NewCommitter("job-A", sink)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.True(t, sink.Closed())
}
