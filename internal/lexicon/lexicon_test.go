package lexicon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	loaded  map[string]string
	loadErr error
	saveErr error
	saves   []map[string]string
	saved   chan struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(chan struct{}, 16)}
}

func (m *memoryStore) Load(context.Context) (map[string]string, error) {
	return m.loaded, m.loadErr
}

func (m *memoryStore) Save(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	m.saves = append(m.saves, entries)
	m.mu.Unlock()
	m.saved <- struct{}{}
	return m.saveErr
}

func (m *memoryStore) lastSave() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

func TestLexicon_CaseInsensitiveGet(t *testing.T) {
	t.Parallel()

	lx := New(map[string]string{"Hi": "嗨"})
	for _, w := range []string{"hi", "HI", "Hi", "hI"} {
		v, ok := lx.Get(w)
		require.True(t, ok, w)
		assert.Equal(t, "嗨", v)
	}

	_, ok := lx.Get("world")
	assert.False(t, ok)
}

func TestLexicon_MergeOverwritesUnderLowercaseKey(t *testing.T) {
	t.Parallel()

	lx := New(map[string]string{"hello": "old"})
	lx.Merge(map[string]string{"Hello": "哈喽", "World": "沃德"})

	assert.Equal(t, map[string]string{"hello": "哈喽", "world": "沃德"}, lx.Snapshot())
	assert.Equal(t, 2, lx.Len())
}

func TestLexicon_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	lx := New(nil)
	lx.Merge(map[string]string{"px": "屁克斯"})
	snap := lx.Snapshot()
	snap["div"] = "弟五"

	_, ok := lx.Get("div")
	assert.False(t, ok)
}

func TestOpen_LoadErrorYieldsEmptyLexicon(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.loadErr = errors.New("corrupt")

	lx := Open(context.Background(), store)
	require.NotNil(t, lx)
	assert.Equal(t, 0, lx.Len())
}

func TestOpen_NormalizesLoadedKeys(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.loaded = map[string]string{"Public": "啪不里克"}

	lx := Open(context.Background(), store)
	v, ok := lx.Get("public")
	require.True(t, ok)
	assert.Equal(t, "啪不里克", v)
}

func TestDiscardStore_StartsEmptyAndAcceptsSaves(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lx := Open(ctx, DiscardStore{})
	assert.Equal(t, 0, lx.Len())

	lx.Merge(map[string]string{"Hi": "嗨"})
	require.NoError(t, DiscardStore{}.Save(ctx, lx.Snapshot()))
	v, ok := lx.Get("hi")
	assert.True(t, ok)
	assert.Equal(t, "嗨", v)
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, map[string]string{"hi": "嗨", "world": "世界"}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hi": "嗨", "world": "世界"}, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_MissingAndCorruptFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	missing, err := NewFileStore(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	_, err = missing.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, Open(ctx, missing).Len())

	corruptPath := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not json"), 0o644))
	corrupt, err := NewFileStore(corruptPath)
	require.NoError(t, err)
	_, err = corrupt.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, Open(ctx, corrupt).Len())
}

func TestFileStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("  ")
	require.Error(t, err)
}

func TestFlusher_RequestFlushWritesSnapshot(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	lx := New(nil)
	f := NewFlusher(lx, store)
	t.Cleanup(func() { _ = f.Close(context.Background()) })

	lx.Merge(map[string]string{"Hi": "嗨"})
	f.RequestFlush()

	select {
	case <-store.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("flush was not performed")
	}
	assert.Equal(t, map[string]string{"hi": "嗨"}, store.lastSave())
}

func TestFlusher_FailureIsReportedNotFatal(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.saveErr = errors.New("disk full")

	errCh := make(chan error, 1)
	lx := New(map[string]string{"hi": "嗨"})
	f := NewFlusher(lx, store, WithErrorHandler(func(err error) { errCh <- err }))

	f.RequestFlush()
	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "disk full")
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}

	v, ok := lx.Get("hi")
	require.True(t, ok)
	assert.Equal(t, "嗨", v)

	require.Error(t, f.Close(context.Background()))
}

func TestFlusher_RequestFlushNeverBlocks(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.saved = make(chan struct{}, 1024)
	f := NewFlusher(New(nil), store)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			f.RequestFlush()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RequestFlush blocked")
	}
	require.NoError(t, f.Close(context.Background()))
}

func TestFlusher_CloseWritesFinalSnapshot(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	lx := New(nil)
	f := NewFlusher(lx, store)

	lx.Merge(map[string]string{"div": "弟五"})
	require.NoError(t, f.Close(context.Background()))
	assert.Equal(t, map[string]string{"div": "弟五"}, store.lastSave())
}
