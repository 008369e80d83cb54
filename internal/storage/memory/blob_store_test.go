package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObject(t *testing.T) {
	store := NewBlobStore()

	uri, err := store.PutObject(context.Background(), "scraped_data/20250314_092653/42_Café_Central.json", "application/json", []byte(`{"success":true}`))
	require.NoError(t, err)
	assert.Equal(t, "memory://scraped_data/20250314_092653/42_Café_Central.json", uri)

	data, ok := store.Get("scraped_data/20250314_092653/42_Café_Central.json")
	require.True(t, ok)
	assert.JSONEq(t, `{"success":true}`, string(data))
}

func TestBlobStorePutObjectOverwrites(t *testing.T) {
	store := NewBlobStore()
	ctx := context.Background()

	_, err := store.PutObject(ctx, "a/b.json", "application/json", []byte("first"))
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "a/b.json", "application/json", []byte("second"))
	require.NoError(t, err)

	data, ok := store.Get("a/b.json")
	require.True(t, ok)
	assert.Equal(t, "second", string(data))
	assert.Len(t, store.Keys(), 1)
}

func TestBlobStoreCopiesData(t *testing.T) {
	store := NewBlobStore()
	buf := []byte("original")

	_, err := store.PutObject(context.Background(), "k", "text/plain", buf)
	require.NoError(t, err)

	buf[0] = 'X'
	data, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "original", string(data))
}

func TestBlobStoreGetMissing(t *testing.T) {
	store := NewBlobStore()
	_, ok := store.Get("nope")
	assert.False(t, ok)
}
