package lexicon

import (
	"context"
	"fmt"
	"sync"

	"github.com/MimeLyc/xieyin/pkg/log"
)

// Flusher writes lexicon snapshots to a Store from a background goroutine.
// Requests made while a write is pending collapse into one write.
type Flusher struct {
	lexicon *Lexicon
	store   Store
	onError func(error)

	saveMu   sync.Mutex
	pending  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type FlusherOption func(*Flusher)

// WithErrorHandler registers a callback invoked after every failed write.
func WithErrorHandler(fn func(error)) FlusherOption {
	return func(f *Flusher) {
		f.onError = fn
	}
}

func NewFlusher(lexicon *Lexicon, store Store, opts ...FlusherOption) *Flusher {
	f := &Flusher{
		lexicon: lexicon,
		store:   store,
		pending: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.wg.Add(1)
	go f.worker()
	return f
}

// RequestFlush schedules a write of the current lexicon. It never blocks.
func (f *Flusher) RequestFlush() {
	select {
	case f.pending <- struct{}{}:
	default:
	}
}

// FlushNow writes the current lexicon synchronously.
func (f *Flusher) FlushNow(ctx context.Context) error {
	if f.store == nil {
		return nil
	}

	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	snapshot := f.lexicon.Snapshot()
	if err := f.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save lexicon: %w", err)
	}
	log.Debug("Lexicon flushed (%d entries)", len(snapshot))
	return nil
}

// Close stops the worker and performs a final write.
func (f *Flusher) Close(ctx context.Context) error {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})
	f.wg.Wait()
	return f.FlushNow(ctx)
}

func (f *Flusher) worker() {
	defer f.wg.Done()

	for {
		select {
		case <-f.stopCh:
			return
		case <-f.pending:
			if err := f.FlushNow(context.Background()); err != nil {
				log.Error("Failed to flush lexicon: %v", err)
				if f.onError != nil {
					f.onError(err)
				}
			}
		}
	}
}
