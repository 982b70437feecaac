// Package lexicon holds the word → homophone cache shared by all requests,
// together with its persistent stores and the background flusher that writes
// it back after each mutation.
package lexicon

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/MimeLyc/xieyin/pkg/log"
)

// Store persists the whole lexicon. Save always receives a full snapshot.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
}

// DiscardStore persists nothing. It stands in when no cache store can be
// opened, so lookups still work for the lifetime of the process.
type DiscardStore struct{}

func (DiscardStore) Load(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (DiscardStore) Save(_ context.Context, entries map[string]string) error {
	log.Debug("Cache store unavailable, %d entries kept in memory only", len(entries))
	return nil
}

// Lexicon is an in-memory, case-insensitive mapping from word to homophone.
// Keys are stored lowercased. It is safe for concurrent use; callers that
// read-then-write across a remote call are not serialized.
type Lexicon struct {
	mu      sync.RWMutex
	entries map[string]string
}

func New(entries map[string]string) *Lexicon {
	lx := &Lexicon{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		lx.entries[Key(k)] = v
	}
	return lx
}

// Open loads the lexicon from store. A missing, unreadable or corrupt store
// yields an empty lexicon; the error is only logged.
func Open(ctx context.Context, store Store) *Lexicon {
	if store == nil {
		return New(nil)
	}
	entries, err := store.Load(ctx)
	if err != nil {
		log.Warn("Failed to load lexicon, starting empty: %v", err)
		return New(nil)
	}
	lx := New(entries)
	log.Info("Loaded %d lexicon entries", lx.Len())
	return lx
}

// Key is the cache key for a word.
func Key(word string) string {
	return strings.ToLower(word)
}

// Get looks up word case-insensitively.
func (l *Lexicon) Get(word string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.entries[Key(word)]
	return v, ok
}

// Merge stores every pair under its lowercase key, overwriting existing
// entries. When two batch keys share a lowercase form the last one visited
// wins.
func (l *Lexicon) Merge(batch map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for word, homophone := range batch {
		l.entries[Key(word)] = homophone
	}
}

func (l *Lexicon) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of all entries.
func (l *Lexicon) Snapshot() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.entries)
}
