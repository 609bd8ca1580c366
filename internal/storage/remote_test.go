package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteStubReturnsBackendUnavailable(t *testing.T) {
	r := NewRemote(KindS3)
	ctx := context.Background()

	_, err := r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	err = r.Put(ctx, "k", []byte("v"))
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = r.Exists(ctx, "k")
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	err = r.Delete(ctx, "k")
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = r.ListObjects(ctx, "k")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
