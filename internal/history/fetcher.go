// Package history orchestrates on-demand equity history fetches: it
// calls the bridge REST API, normalizes the response into a dense daily
// series, and keeps the latest result for the API layer. Concurrent
// refreshes race last-request-wins: a response that was superseded by a
// newer request never overwrites the shared series.
package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"bridge-stats/internal/bridge"
	"bridge-stats/internal/series"

	"github.com/rs/zerolog/log"
)

// Client fetches raw history points from the backend.
type Client interface {
	FetchHistory(ctx context.Context, logins []string, rng string) ([]bridge.AccountHistory, error)
}

// Cache is the optional persistent fallback for fetched points.
type Cache interface {
	PutHistoryPoints(login string, points []bridge.HistoryPoint) error
	GetHistoryPoints(login string, start, end time.Time) ([]bridge.HistoryPoint, error)
}

// Tracker receives fetch and normalization observations.
type Tracker interface {
	HistoryFetchStarted()
	HistoryFetchFailed()
	StaleResponseDropped()
	SeriesNormalized(took time.Duration)
}

// Fetcher is safe for concurrent use.
type Fetcher struct {
	client  Client
	cache   Cache // may be nil
	logins  []string
	tracker Tracker // may be nil
	now     func() time.Time

	seq atomic.Uint64 // last issued request token

	mu   sync.RWMutex
	rows []series.Row
	rng  series.Range
	set  bool
}

func New(client Client, cache Cache, logins []string, tracker Tracker) *Fetcher {
	return &Fetcher{
		client:  client,
		cache:   cache,
		logins:  logins,
		tracker: tracker,
		now:     time.Now,
	}
}

// Refresh fetches and normalizes history for the given range. The
// returned rows are always fresh for this caller; the shared latest
// series is only replaced when no newer refresh was issued in the
// meantime.
func (f *Fetcher) Refresh(ctx context.Context, rng series.Range) ([]series.Row, error) {
	token := f.seq.Add(1)

	if f.tracker != nil {
		f.tracker.HistoryFetchStarted()
	}

	accounts, err := f.client.FetchHistory(ctx, f.logins, string(rng))
	if err != nil {
		if f.tracker != nil {
			f.tracker.HistoryFetchFailed()
		}
		accounts = f.fromCache(rng)
		if accounts == nil {
			return nil, err
		}
		log.Warn().Err(err).Str("range", string(rng)).Msg("history fetch failed, serving cached points")
	} else if f.cache != nil {
		for _, a := range accounts {
			if err := f.cache.PutHistoryPoints(a.Login, a.History); err != nil {
				log.Warn().Err(err).Str("login", a.Login).Msg("failed to cache history points")
			}
		}
	}

	start := time.Now()
	rows := series.Normalize(accounts, rng, f.now())
	if f.tracker != nil {
		f.tracker.SeriesNormalized(time.Since(start))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if token != f.seq.Load() {
		// A newer refresh was issued while this one was in flight.
		if f.tracker != nil {
			f.tracker.StaleResponseDropped()
		}
		log.Debug().Str("range", string(rng)).Msg("discarding superseded history response")
		return rows, nil
	}
	f.rows = rows
	f.rng = rng
	f.set = true
	return rows, nil
}

// Latest returns the most recent non-superseded series and its range.
func (f *Fetcher) Latest() ([]series.Row, series.Range, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rows, f.rng, f.set
}

func (f *Fetcher) fromCache(rng series.Range) []bridge.AccountHistory {
	if f.cache == nil {
		return nil
	}

	start, end := rng.Bounds(f.now())
	accounts := make([]bridge.AccountHistory, 0, len(f.logins))
	found := false
	for _, login := range f.logins {
		points, err := f.cache.GetHistoryPoints(login, start, end)
		if err != nil {
			log.Warn().Err(err).Str("login", login).Msg("failed to read cached history points")
			continue
		}
		if len(points) > 0 {
			found = true
		}
		accounts = append(accounts, bridge.AccountHistory{Login: login, History: points})
	}
	if !found {
		return nil
	}
	return accounts
}
