package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemKV_RoundTrip(t *testing.T) {
	kv := NewMemKV()

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("k", []byte("v1")))
	val, ok, err := kv.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), val)

	require.NoError(t, kv.Set("k", []byte("v2")))
	val, _, _ = kv.Get("k")
	assert.Equal(t, []byte("v2"), val)
}

func TestMemKV_ReturnsCopies(t *testing.T) {
	kv := NewMemKV()
	require.NoError(t, kv.Set("k", []byte("abc")))

	val, _, _ := kv.Get("k")
	val[0] = 'x'

	again, _, _ := kv.Get("k")
	assert.Equal(t, []byte("abc"), again)
}

func TestPebbleKV_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	kv, err := NewPebbleKV(dir)
	require.NoError(t, err)

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("k", []byte("payload")))
	require.NoError(t, kv.Close())

	// Durable across reopen.
	kv, err = NewPebbleKV(dir)
	require.NoError(t, err)
	defer kv.Close()

	val, ok, err := kv.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), val)
}
