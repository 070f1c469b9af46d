package mockmanifest

import (
	"context"
	"sync"

	"github.com/hugolhafner/lakecommit/manifest"
)

var _ manifest.Sink = (*Sink)(nil)

type commitKey struct {
	commitUser   string
	checkpointID int64
}

// Sink is an in-memory manifest.Sink for tests. It deduplicates by
// (commit user, checkpoint id) the way a conforming external store must,
// so re-committing an applied manifest changes nothing.
type Sink struct {
	mu sync.Mutex

	applied []manifest.ManifestCommittable
	seen    map[commitKey]struct{}

	commitErr func(committable manifest.ManifestCommittable) error
	closed    bool
}

type Option func(*Sink)

// WithCommitError injects a per-commit failure. Return nil to let the
// commit through.
func WithCommitError(fn func(committable manifest.ManifestCommittable) error) Option {
	return func(s *Sink) {
		s.commitErr = fn
	}
}

func NewSink(opts ...Option) *Sink {
	s := &Sink{
		seen: make(map[commitKey]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Sink) Commit(_ context.Context, committable manifest.ManifestCommittable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitErr != nil {
		if err := s.commitErr(committable); err != nil {
			return err
		}
	}

	key := commitKey{commitUser: committable.CommitUser, checkpointID: committable.CheckpointID}
	if _, ok := s.seen[key]; ok {
		return nil
	}

	s.seen[key] = struct{}{}
	s.applied = append(s.applied, committable)
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Applied returns the manifests committed so far, in application order,
// excluding deduplicated re-commits.
func (s *Sink) Applied() []manifest.ManifestCommittable {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]manifest.ManifestCommittable, len(s.applied))
	copy(out, s.applied)
	return out
}

// AppliedCheckpoints returns the checkpoint ids of applied manifests in
// application order.
func (s *Sink) AppliedCheckpoints() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.applied))
	for _, c := range s.applied {
		ids = append(ids, c.CheckpointID)
	}
	return ids
}

func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
