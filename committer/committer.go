package committer

import (
	"context"
)

// Committer aggregates per-writer committables into one global committable
// per checkpoint and commits global committables to the external system.
//
// C is the committable produced upstream for a single checkpoint, G the
// aggregate carrying everything needed to commit one checkpoint's effect.
type Committer[C, G any] interface {
	// GroupByCheckpoint classifies every input into exactly one checkpoint
	// group. Pure: no side effects, no retained references.
	GroupByCheckpoint(inputs []C) (map[int64][]C, error)

	// Combine folds one checkpoint's committables into a single global
	// committable. watermark is the latest observed event-time watermark.
	Combine(checkpointID int64, watermark int64, inputs []C) (G, error)

	// Commit applies global committables to the external system in the
	// given order. Must be safe to invoke again with an overlapping or
	// identical batch: recovery re-commits anything persisted but not yet
	// confirmed applied.
	Commit(ctx context.Context, committables []G) error

	// Close releases external handles. Idempotent.
	Close() error
}

// Factory creates a Committer bound to a commit user. The commit user is
// stable across restarts and may be used by the external system to
// deduplicate commits from the same logical writer.
type Factory[C, G any] func(commitUser string) (Committer[C, G], error)

// Applier is the commit-only facet of a Committer, which is all the
// recovery path needs.
type Applier[G any] interface {
	Commit(ctx context.Context, committables []G) error
}
