package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bridge-stats/internal/api"
	"bridge-stats/internal/bridge"
	"bridge-stats/internal/cfg"
	"bridge-stats/internal/history"
	"bridge-stats/internal/metrics"
	"bridge-stats/internal/series"
	"bridge-stats/internal/stats"
	"bridge-stats/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	setLogLevel(c.LogLevel)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	tracker := metrics.NewTracker(m)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	latest := stats.NewLatestView()
	seedLatestView(latest, store, m)

	snapshots := make(chan bridge.Snapshot, 16)
	errs := make(chan error, 32)

	ws := bridge.NewWS(c.WsURL, c.Key)
	startStreamHandler(ctx, ws, snapshots, errs, c.Ping)

	rest := bridge.NewREST(c.Key, c.Secret, c.BaseURL, c.RESTTimeout)
	fetcher := history.New(rest, cacheOrNil(store), c.Accounts, tracker)

	var wg sync.WaitGroup
	startSnapshotHandler(ctx, &wg, snapshots, latest, store, tracker, m)
	startErrorHandler(ctx, &wg, errs, m)

	srv := api.New(latest, fetcher, series.ParseRange(c.DefaultRange))
	go func() {
		if err := srv.Start(ctx, c.HTTPPort); err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, &wg)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// initializeStorage opens the bbolt store if DATA_PATH is configured.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath != "" {
		store, err := storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
			return nil
		}
		return store
	}
	return nil
}

// cacheOrNil avoids handing the fetcher a typed nil behind its Cache
// interface.
func cacheOrNil(store *storage.Store) history.Cache {
	if store == nil {
		return nil
	}
	return store
}

// seedLatestView restores the last persisted view so /api/v1/stats can
// answer before the first snapshot arrives.
func seedLatestView(latest *stats.LatestView, store *storage.Store, m *metrics.Metrics) {
	if store == nil {
		return
	}
	view, found, err := store.GetView()
	if err != nil {
		log.Warn().Err(err).Msg("failed to restore persisted view")
		return
	}
	if found {
		latest.Set(view)
		m.UpdateView(view.Balance.MT4, view.Balance.MT5, len(view.OpenPositions))
		log.Info().Msg("restored stats view from storage")
	}
}

// startStreamHandler starts the realtime channel connection handler.
func startStreamHandler(ctx context.Context, ws bridge.WS, snapshots chan bridge.Snapshot, errs chan error, ping time.Duration) {
	go func() {
		if err := ws.Stream(ctx, snapshots, errs, ping); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("realtime stream ended")
			select {
			case errs <- err:
			default:
			}
		}
	}()
}

// startSnapshotHandler starts the goroutine that reduces each incoming
// snapshot and publishes the derived view.
func startSnapshotHandler(ctx context.Context, wg *sync.WaitGroup, snapshots chan bridge.Snapshot,
	latest *stats.LatestView, store *storage.Store, tracker *metrics.Tracker, m *metrics.Metrics,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapshots:
				view := stats.ReduceWithMetrics(snap, tracker)
				latest.Set(view)
				m.UpdateView(view.Balance.MT4, view.Balance.MT5, len(view.OpenPositions))

				if store != nil {
					if err := store.PutView(view); err != nil {
						log.Warn().Err(err).Msg("failed to persist view")
					}
				}
			}
		}
	}()
}

// startErrorHandler starts the background error handling goroutine.
func startErrorHandler(ctx context.Context, wg *sync.WaitGroup, errs chan error, m *metrics.Metrics) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				log.Error().Err(err).Msg("background error")
				m.WSReconnects.Inc()
				m.ErrorsTotal.Inc()
			}
		}
	}()
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
