package state

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hugolhafner/lakecommit/committer"
	"github.com/hugolhafner/lakecommit/serde"
)

const (
	commitUserKey   = "commit_user"
	committablesKey = "pending_committables"
)

// Manager persists the set of not-yet-confirmed global committables into a
// snapshot and restores them, plus the commit user, after a restart.
type Manager[G any] interface {
	// RestoreCommitUser returns the recovered commit user if one was ever
	// persisted, otherwise it persists and returns initial.
	// Create-once-then-fixed: the value never changes after the first run.
	RestoreCommitUser(ctx context.Context, initial string) (string, error)

	// Restore loads the global committables persisted by the last snapshot
	// and re-commits them through applier, covering the case where the
	// process died after snapshotting but before the checkpoint was
	// confirmed. Called once, before any new committable is processed.
	Restore(ctx context.Context, applier committer.Applier[G]) ([]G, error)

	// Persist durably records the given committables, in order, as this
	// snapshot's state. The snapshot is a point-in-time copy: later
	// mutation of the caller's collections must not affect it.
	Persist(ctx context.Context, committables []G) error
}

var _ Manager[any] = (*manager[any])(nil)

type manager[G any] struct {
	store Store
	serde serde.Serde[G]
}

// NewManager returns a Manager that frames committables through serde into
// the given store.
func NewManager[G any](store Store, s serde.Serde[G]) Manager[G] {
	return &manager[G]{
		store: store,
		serde: s,
	}
}

func (m *manager[G]) RestoreCommitUser(ctx context.Context, initial string) (string, error) {
	value, ok, err := m.store.Get(ctx, commitUserKey)
	if err != nil {
		return "", fmt.Errorf("read commit user: %w", err)
	}
	if ok {
		return string(value), nil
	}

	if err := m.store.Put(ctx, commitUserKey, []byte(initial)); err != nil {
		return "", fmt.Errorf("persist commit user: %w", err)
	}

	return initial, nil
}

func (m *manager[G]) Restore(ctx context.Context, applier committer.Applier[G]) ([]G, error) {
	value, ok, err := m.store.Get(ctx, committablesKey)
	if err != nil {
		return nil, fmt.Errorf("read pending committables: %w", err)
	}
	if !ok {
		return nil, nil
	}

	committables, err := m.decode(value)
	if err != nil {
		return nil, fmt.Errorf("decode pending committables: %w", err)
	}

	if len(committables) == 0 {
		return nil, nil
	}

	// Re-commit whatever was snapshotted but possibly never applied. The
	// external system deduplicates, so re-applying an already-applied
	// committable is a no-op.
	if err := applier.Commit(ctx, committables); err != nil {
		return nil, fmt.Errorf("recommit restored committables: %w", err)
	}

	return committables, nil
}

func (m *manager[G]) Persist(ctx context.Context, committables []G) error {
	value, err := m.encode(committables)
	if err != nil {
		return fmt.Errorf("encode pending committables: %w", err)
	}

	return m.store.Put(ctx, committablesKey, value)
}

// list framing: [count:4] then per item [len:4][bytes]
func (m *manager[G]) encode(committables []G) ([]byte, error) {
	buf := make([]byte, 4, 4+len(committables)*16)
	binary.BigEndian.PutUint32(buf[:4], uint32(len(committables)))

	for i, c := range committables {
		data, err := m.serde.Serialise(committablesKey, c)
		if err != nil {
			return nil, fmt.Errorf("serialise committable %d: %w", i, err)
		}

		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(data)))
		buf = append(buf, size[:]...)
		buf = append(buf, data...)
	}

	return buf, nil
}

func (m *manager[G]) decode(value []byte) ([]G, error) {
	if len(value) < 4 {
		return nil, fmt.Errorf("truncated committable list: %d bytes", len(value))
	}

	count := binary.BigEndian.Uint32(value[:4])
	value = value[4:]

	committables := make([]G, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(value) < 4 {
			return nil, fmt.Errorf("truncated committable %d header", i)
		}
		size := binary.BigEndian.Uint32(value[:4])
		value = value[4:]

		if uint32(len(value)) < size {
			return nil, fmt.Errorf("truncated committable %d: want %d bytes, have %d", i, size, len(value))
		}

		c, err := m.serde.Deserialise(committablesKey, value[:size])
		if err != nil {
			return nil, fmt.Errorf("deserialise committable %d: %w", i, err)
		}

		committables = append(committables, c)
		value = value[size:]
	}

	return committables, nil
}
