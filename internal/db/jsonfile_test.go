package db

import (
	"context"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStoreListBeforeAnySave(t *testing.T) {
	store, err := NewJSONStore(afero.NewMemMapFs(), "/state/threads.json")
	require.NoError(t, err)

	ids, err := store.ListThreads(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestJSONStoreSaveIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewJSONStore(fs, "/state/threads.json")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveThread(ctx, "thread_a"))
	require.NoError(t, store.SaveThread(ctx, "thread_b"))
	require.NoError(t, store.SaveThread(ctx, "thread_a"))

	ids, err := store.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"thread_a", "thread_b"}, ids)

	data, err := afero.ReadFile(fs, "/state/threads.json")
	require.NoError(t, err)
	assert.JSONEq(t, `["thread_a","thread_b"]`, string(data))
}

func TestJSONStoreCorruptFileReadsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/threads.json", []byte("{not json"), 0o644))

	store, err := NewJSONStore(fs, "/threads.json")
	require.NoError(t, err)

	ids, err := store.ListThreads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.SaveThread(context.Background(), "thread_c"))
	ids, err = store.ListThreads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"thread_c"}, ids)
}

func TestJSONStoreRejectsEmptyID(t *testing.T) {
	store, err := NewJSONStore(afero.NewMemMapFs(), "/threads.json")
	require.NoError(t, err)
	assert.Error(t, store.SaveThread(context.Background(), "  "))
}

func TestJSONStoreConcurrentSaves(t *testing.T) {
	store, err := NewJSONStore(afero.NewMemMapFs(), "/threads.json")
	require.NoError(t, err)
	ctx := context.Background()

	ids := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, store.SaveThread(ctx, id))
		}(id)
	}
	wg.Wait()

	stored, err := store.ListThreads(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, stored)
}
