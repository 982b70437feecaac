package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/xieyin/internal/config"
	"github.com/MimeLyc/xieyin/internal/httpapi"
	"github.com/MimeLyc/xieyin/internal/observe"
	"github.com/MimeLyc/xieyin/pkg/icron"
	"github.com/MimeLyc/xieyin/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type shutdowner interface {
	Close(ctx context.Context) error
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the static page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	var mp metric.MeterProvider = noop.NewMeterProvider()
	if cfg.Metrics.Enabled {
		shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				log.Warn("Failed to shut down metrics: %v", err)
			}
		}()
		mp = otel.GetMeterProvider()
	}

	a, err := newApp(ctx, cfg, mp)
	if err != nil {
		return err
	}

	srvOpts := []httpapi.Option{
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithCacheStats(a.lexicon),
		httpapi.WithMiddleware(observe.Middleware(a.metrics)),
	}
	if cfg.Metrics.Enabled {
		srvOpts = append(srvOpts, httpapi.WithMetricsHandler(promhttp.Handler()))
	}
	srv := httpapi.NewServer(a.service, srvOpts...)

	engine := cron.New()
	snapshots := &snapshotScheduler{
		expr:    cfg.Cache.SnapshotCron,
		cron:    engine,
		flusher: a.flusher,
	}
	return runWithComponents(ctx, cfg, snapshots, engine, srv, a)
}

// runWithComponents runs the HTTP server until ctx is cancelled or the server
// fails, then stops the scheduler and closes app, which writes the lexicon a
// final time.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, engine cronEngine, srv httpServer, app shutdowner) error {
	if sched != nil {
		if err := sched.Schedule(ctx); err != nil {
			closeApp(app)
			return err
		}
	}
	engine.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	engine.Stop()
	log.Info("Server stopped")

	closeApp(app)
	return err
}

func closeApp(app shutdowner) {
	if app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		log.Error("Failed to persist lexicon on shutdown: %v", err)
	}
}

type snapshotFlusher interface {
	FlushNow(ctx context.Context) error
}

// snapshotScheduler writes the lexicon on a cron schedule in addition to the
// writes that follow each lookup.
type snapshotScheduler struct {
	expr    string
	cron    *cron.Cron
	flusher snapshotFlusher
}

func (s *snapshotScheduler) Schedule(_ context.Context) error {
	if s.expr == "" {
		log.Info("Periodic lexicon snapshots disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.expr, func() {
		if err := s.flusher.FlushNow(context.Background()); err != nil {
			log.Error("Scheduled lexicon snapshot failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	if info, err := icron.GetTriggerInfo(s.expr, time.Now()); err == nil {
		log.Info("Lexicon snapshots scheduled (%s), next in %s", s.expr, info.TimeUntilNext.Round(time.Second))
	}
	return nil
}
