package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roarguard/blobstore"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	store, err := New(ctx, bucket, WithPrefix(fmt.Sprintf("test-roarguard-%d/", time.Now().UnixNano())))
	require.NoError(t, err)

	name := "test.blob"
	data := make([]byte, 1024*1024)
	_, _ = rand.Read(data)

	require.NoError(t, store.Put(ctx, name, data))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, name)

	got, err := store.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Get(ctx, name)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
