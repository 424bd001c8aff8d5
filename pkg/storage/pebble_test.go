package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPebbleStore_ReadWrite(t *testing.T) {
	s, err := NewPebbleStore("")
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Close()) }()

	ctx := context.Background()
	_, err = s.Read(ctx, 1)
	assert.ErrorIs(t, err, ErrPageNotFound)

	require.NoError(t, s.Write(ctx, 1, []byte("page one")))
	require.NoError(t, s.Write(ctx, 2, []byte("page two")))

	data, err := s.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("page one"), data)

	require.NoError(t, s.Write(ctx, 1, []byte("rewritten")))
	data, err = s.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("rewritten"), data)
}

func TestPebbleStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewPebbleStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), 9, []byte("durable")))
	require.NoError(t, s.Close())

	s, err = NewPebbleStore(dir)
	require.NoError(t, err)
	defer s.Close()
	data, err := s.Read(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), data)
}
