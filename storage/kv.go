// Package storage provides the client-local key-value persistence the stop
// order table lives in. The interface is deliberately tiny so the store can
// later be backed by a server-side database without touching the engine.
package storage

type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Close() error
}
