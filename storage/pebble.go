package storage

import (
	"github.com/cockroachdb/pebble"
)

// PebbleKV is the durable on-disk adapter.
type PebbleKV struct {
	db *pebble.DB
}

func NewPebbleKV(path string) (*PebbleKV, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleKV{db: db}, nil
}

func (s *PebbleKV) Get(key string) ([]byte, bool, error) {
	val, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (s *PebbleKV) Set(key string, value []byte) error {
	return s.db.Set([]byte(key), value, pebble.Sync)
}

func (s *PebbleKV) Close() error { return s.db.Close() }
