package pebblestore

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/hugolhafner/lakecommit/state"
)

var _ state.Store = (*Store)(nil)

// Store is a pebble-backed state.Store. Every write is synced: an
// acknowledged Put is the durability boundary the commit operator relies
// on when confirming checkpoints.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	return s.db.Set([]byte(key), value, pebble.Sync)
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), pebble.Sync)
}

func (s *Store) Close() error {
	return s.db.Close()
}
