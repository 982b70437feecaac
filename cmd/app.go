package main

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/MimeLyc/xieyin/internal/config"
	"github.com/MimeLyc/xieyin/internal/homophone"
	"github.com/MimeLyc/xieyin/internal/lexicon"
	"github.com/MimeLyc/xieyin/internal/llm"
	"github.com/MimeLyc/xieyin/internal/observe"
	"github.com/MimeLyc/xieyin/internal/resolve"
	"github.com/MimeLyc/xieyin/internal/service"
	"github.com/MimeLyc/xieyin/pkg/log"
)

// app holds the wired components shared by the serve and translate commands.
type app struct {
	lexicon *lexicon.Lexicon
	flusher *lexicon.Flusher
	metrics *observe.Metrics
	service *service.Service

	closeStore func() error
}

func newApp(ctx context.Context, cfg *config.Config, mp metric.MeterProvider) (*app, error) {
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	lx := lexicon.Open(ctx, store)
	flusher := lexicon.NewFlusher(lx, store, lexicon.WithErrorHandler(func(error) {
		metrics.RecordFlushError(context.Background())
	}))

	resolver := resolve.New(lx, fetcher,
		resolve.WithFlusher(flusher),
		resolve.WithObserver(metrics),
	)

	return &app{
		lexicon:    lx,
		flusher:    flusher,
		metrics:    metrics,
		service:    service.New(resolver),
		closeStore: closeStore,
	}, nil
}

// Close writes the lexicon one last time and releases the store.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.flusher.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeStore(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// openStore never fails on an unusable cache: a corrupt sqlite file is moved
// aside, and anything else falls back to an in-memory cache.
func openStore(cfg *config.Config) (lexicon.Store, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheBackendSQLite:
		store, err := lexicon.OpenSQLiteStore(cfg.CachePath())
		if err != nil {
			log.Warn("Failed to open sqlite cache at %s, entries will not be persisted: %v", cfg.CachePath(), err)
			return lexicon.DiscardStore{}, noClose, nil
		}
		log.Info("Using sqlite cache at %s", cfg.CachePath())
		return store, store.Close, nil
	default:
		store, err := lexicon.NewFileStore(cfg.CachePath())
		if err != nil {
			return nil, nil, fmt.Errorf("open json cache: %w", err)
		}
		log.Info("Using json cache at %s", cfg.CachePath())
		return store, noClose, nil
	}
}

func newFetcher(cfg *config.Config) (resolve.Fetcher, error) {
	if cfg.Homophone.Fake {
		log.Warn("Using placeholder homophones, the LLM is not called")
		return homophone.StaticFetcher{}, nil
	}

	client, err := llm.NewClient(&llm.Config{
		APIKey:        cfg.LLM.APIKey,
		APIURL:        cfg.LLM.APIURL,
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		Timeout:       cfg.LLM.Timeout,
		RatePerMinute: cfg.LLM.RatePerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	log.Info("Homophones from %s (%s), target %s", client.Model(), cfg.LLM.APIURL, homophone.LanguageName(cfg.Homophone.TargetLanguage))
	return homophone.NewLLMFetcher(client, cfg.Homophone.TargetLanguage, cfg.LLM.Temperature), nil
}
