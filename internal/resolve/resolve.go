// Package resolve turns a sequence of word occurrences into their homophones,
// asking the remote fetcher only for words the cache does not know yet.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/xieyin/pkg/log"
)

// ErrLookup wraps every failure of the remote fetcher.
var ErrLookup = errors.New("remote lookup failed")

// Cache is the case-insensitive word store consulted before fetching.
type Cache interface {
	Get(word string) (string, bool)
	Merge(batch map[string]string)
}

// Fetcher obtains homophones for words exactly as spelled. The returned map
// is keyed by the words as sent; it may omit some of them.
type Fetcher interface {
	Fetch(ctx context.Context, words []string) (map[string]string, error)
}

// Flusher is asked to persist the cache after a merge. RequestFlush must not
// block.
type Flusher interface {
	RequestFlush()
}

// Stats describes one Resolve call.
type Stats struct {
	Words    int
	Hits     int
	Queued   int
	Fetched  int
	Duration time.Duration
}

// Observer receives per-call statistics, including failed calls.
type Observer interface {
	ObserveResolve(ctx context.Context, stats Stats, err error)
}

type Resolver struct {
	cache    Cache
	fetcher  Fetcher
	flusher  Flusher
	observer Observer

	group singleflight.Group
}

type Option func(*Resolver)

func WithFlusher(f Flusher) Option {
	return func(r *Resolver) {
		r.flusher = f
	}
}

func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

func New(cache Cache, fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		cache:   cache,
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one homophone per element of words, in order. Words the
// fetcher did not answer resolve to "". Cached empty renderings are fetched
// again.
//
// Cache misses are queued by exact spelling, so "Foo" and "foo" are both
// sent when neither is cached. The fetcher is called at most once. A fetch
// failure fails the whole call and leaves the cache untouched.
func (r *Resolver) Resolve(ctx context.Context, words []string) (ret []string, err error) {
	start := time.Now()
	stats := Stats{Words: len(words)}
	defer func() {
		stats.Duration = time.Since(start)
		if r.observer != nil {
			r.observer.ObserveResolve(ctx, stats, err)
		}
	}()

	queued := make([]string, 0)
	seen := make(map[string]struct{})
	for _, word := range words {
		// An empty cached rendering counts as a miss and is asked for again.
		if v, ok := r.cache.Get(word); ok && v != "" {
			stats.Hits++
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		queued = append(queued, word)
	}
	stats.Queued = len(queued)

	if len(queued) > 0 {
		log.Info("Looking up %d new words: %s", len(queued), strings.Join(queued, ", "))
		batch, err := r.fetch(ctx, queued)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLookup, err)
		}
		stats.Fetched = len(batch)

		r.cache.Merge(batch)
		if r.flusher != nil {
			r.flusher.RequestFlush()
		}
	}

	ret = make([]string, 0, len(words))
	for _, word := range words {
		homophone, _ := r.cache.Get(word)
		if homophone == "" {
			log.Warn("No homophone returned for %q", word)
		}
		ret = append(ret, homophone)
	}
	return ret, nil
}

// fetch coalesces concurrent calls that queue the same set of words. The
// shared call is detached from the caller that started it; each caller stops
// waiting when its own ctx is done.
func (r *Resolver) fetch(ctx context.Context, queued []string) (map[string]string, error) {
	key := slices.Clone(queued)
	slices.Sort(key)

	ch := r.group.DoChan(strings.Join(key, "\x00"), func() (any, error) {
		return r.fetcher.Fetch(context.WithoutCancel(ctx), queued)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug("Shared in-flight lookup for %d words", len(queued))
		}
		batch, _ := res.Val.(map[string]string)
		return batch, nil
	}
}
