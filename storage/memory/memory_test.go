package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolcall/storage"
)

func TestStore_PutGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	data := []byte{1, 2, 3}

	art, err := s.Put(ctx, "files/a.png", data, "image/png")
	require.NoError(t, err)
	assert.NotEmpty(t, art.ID)
	assert.Equal(t, "files/a.png", art.Key)

	data[0] = 9
	obj, err := s.Get(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, obj.Data)
	assert.Equal(t, "image/png", obj.MIMEType)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Errors(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Put(ctx, " ", nil, "")
	assert.ErrorIs(t, err, storage.ErrEmptyKey)

	boom := errors.New("disk full")
	s.FailPut = func(string, string) error { return boom }
	_, err = s.Put(ctx, "k", nil, "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	s.FailPut = nil
	_, err = s.Put(cancelled, "k", nil, "")
	assert.ErrorIs(t, err, context.Canceled)
}
