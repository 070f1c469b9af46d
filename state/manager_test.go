package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/lakecommit/serde"
	"github.com/hugolhafner/lakecommit/state"
)

type tableCommit struct {
	CheckpointID int64    `json:"checkpoint_id"`
	Files        []string `json:"files"`
}

type recordingApplier struct {
	batches [][]tableCommit
	err     error
}

func (a *recordingApplier) Commit(_ context.Context, committables []tableCommit) error {
	if a.err != nil {
		return a.err
	}

	batch := make([]tableCommit, len(committables))
	copy(batch, committables)
	a.batches = append(a.batches, batch)
	return nil
}

func newTestManager() (state.Manager[tableCommit], *state.MemoryStore) {
	store := state.NewMemoryStore()
	return state.NewManager(store, serde.JSON[tableCommit]()), store
}

func TestManager_RestoreCommitUser(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	user, err := m.RestoreCommitUser(ctx, "job-A")
	require.NoError(t, err)
	require.Equal(t, "job-A", user)

	// Once persisted, a different initial value is ignored.
	user, err = m.RestoreCommitUser(ctx, "job-B")
	require.NoError(t, err)
	require.Equal(t, "job-A", user)
}

func TestManager_PersistAndRestore(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	pending := []tableCommit{
		{CheckpointID: 5, Files: []string{"f5"}},
		{CheckpointID: 7, Files: []string{"f7a", "f7b"}},
	}
	require.NoError(t, m.Persist(ctx, pending))

	applier := &recordingApplier{}
	restored, err := m.Restore(ctx, applier)
	require.NoError(t, err)
	require.Equal(t, pending, restored)

	// Restore re-commits the whole list, in order, in one batch.
	require.Len(t, applier.batches, 1)
	require.Equal(t, pending, applier.batches[0])
}

func TestManager_RestoreNothingPersisted(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	applier := &recordingApplier{}
	restored, err := m.Restore(ctx, applier)
	require.NoError(t, err)
	require.Empty(t, restored)
	require.Empty(t, applier.batches)
}

func TestManager_RestoreEmptyListDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	require.NoError(t, m.Persist(ctx, nil))

	applier := &recordingApplier{}
	restored, err := m.Restore(ctx, applier)
	require.NoError(t, err)
	require.Empty(t, restored)
	require.Empty(t, applier.batches)
}

func TestManager_RestorePropagatesCommitError(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	require.NoError(t, m.Persist(ctx, []tableCommit{{CheckpointID: 1}}))

	applier := &recordingApplier{err: errors.New("sink unavailable")}
	_, err := m.Restore(ctx, applier)
	require.ErrorContains(t, err, "sink unavailable")
}

func TestManager_PersistIsPointInTime(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	pending := []tableCommit{{CheckpointID: 1, Files: []string{"f1"}}}
	require.NoError(t, m.Persist(ctx, pending))

	// Mutating the caller's slice after Persist must not leak into the
	// snapshot.
	pending[0].Files[0] = "mutated"
	pending[0].CheckpointID = 99

	restored, err := m.Restore(ctx, &recordingApplier{})
	require.NoError(t, err)
	require.Equal(t, []tableCommit{{CheckpointID: 1, Files: []string{"f1"}}}, restored)
}

func TestManager_PersistReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	require.NoError(t, m.Persist(ctx, []tableCommit{{CheckpointID: 1}, {CheckpointID: 2}}))
	require.NoError(t, m.Persist(ctx, []tableCommit{{CheckpointID: 2}}))

	restored, err := m.Restore(ctx, &recordingApplier{})
	require.NoError(t, err)
	require.Equal(t, []tableCommit{{CheckpointID: 2}}, restored)
}

func TestManager_RestoreCorruptSnapshot(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{
			name:  "shorter than the count header",
			value: []byte{0x00, 0x00},
		},
		{
			name:  "count without an item header",
			value: []byte{0x00, 0x00, 0x00, 0x01},
		},
		{
			name: "item header without the full payload",
			// count=1, size=16, 2 payload bytes
			value: []byte{
				0x00, 0x00, 0x00, 0x01,
				0x00, 0x00, 0x00, 0x10,
				'{', '}',
			},
		},
		{
			name: "payload that is not valid json",
			// count=1, size=1, payload "{"
			value: []byte{
				0x00, 0x00, 0x00, 0x01,
				0x00, 0x00, 0x00, 0x01,
				'{',
			},
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				ctx := context.Background()
				m, store := newTestManager()

				require.NoError(t, store.Put(ctx, "pending_committables", tt.value))

				applier := &recordingApplier{}
				_, err := m.Restore(ctx, applier)
				require.Error(t, err)

				// A snapshot that cannot be decoded must never be
				// partially re-committed.
				require.Empty(t, applier.batches)
			},
		)
	}
}

func TestMemoryStore_GetCopies(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()

	require.NoError(t, store.Put(ctx, "k", []byte("abc")))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	value[0] = 'x'

	value, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("abc"), value)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()

	require.NoError(t, store.Put(ctx, "k", []byte("abc")))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
