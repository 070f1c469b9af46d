package manifest

import (
	"context"
	"fmt"

	"github.com/hugolhafner/lakecommit/committer"
)

// Sink receives committed manifests. Committing a manifest the sink has
// already applied must be a no-op: recovery re-commits.
type Sink interface {
	Commit(ctx context.Context, committable ManifestCommittable) error
	Close() error
}

var _ committer.Committer[FileCommittable, ManifestCommittable] = (*Committer)(nil)

// Committer aggregates file committables into per-checkpoint manifests and
// commits them to a Sink.
type Committer struct {
	commitUser string
	sink       Sink
	closed     bool
}

func NewCommitter(commitUser string, sink Sink) *Committer {
	return &Committer{
		commitUser: commitUser,
		sink:       sink,
	}
}

// NewCommitterFactory adapts a Sink into a committer factory for the
// commit operator.
func NewCommitterFactory(sink Sink) committer.Factory[FileCommittable, ManifestCommittable] {
	return func(commitUser string) (committer.Committer[FileCommittable, ManifestCommittable], error) {
		return NewCommitter(commitUser, sink), nil
	}
}

func (c *Committer) GroupByCheckpoint(inputs []FileCommittable) (map[int64][]FileCommittable, error) {
	grouped := make(map[int64][]FileCommittable)
	for _, input := range inputs {
		grouped[input.CheckpointID] = append(grouped[input.CheckpointID], input)
	}

	return grouped, nil
}

func (c *Committer) Combine(
	checkpointID int64, watermark int64, inputs []FileCommittable,
) (ManifestCommittable, error) {
	combined := ManifestCommittable{
		CommitUser:   c.commitUser,
		CheckpointID: checkpointID,
		Watermark:    watermark,
	}

	for _, input := range inputs {
		for _, file := range input.Files {
			if file.Path == "" {
				return ManifestCommittable{}, fmt.Errorf(
					"committable for checkpoint %d contains a file without a path", checkpointID,
				)
			}
			combined.Files = append(combined.Files, file)
		}
	}

	return combined, nil
}

func (c *Committer) Commit(ctx context.Context, committables []ManifestCommittable) error {
	for _, committable := range committables {
		if err := c.sink.Commit(ctx, committable); err != nil {
			return fmt.Errorf("commit manifest for checkpoint %d: %w", committable.CheckpointID, err)
		}
	}

	return nil
}

func (c *Committer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	return c.sink.Close()
}
