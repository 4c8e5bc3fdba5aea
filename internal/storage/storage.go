// Package storage provides persistent data storage for the bridge-stats
// service. It uses BoltDB to cache per-account equity history points
// (so charts can still render when a history fetch fails) and to keep
// the latest derived stats view across restarts.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"bridge-stats/internal/bridge"
	"bridge-stats/internal/stats"

	"go.etcd.io/bbolt"
)

const (
	historyBucket = "history" // Per-login equity history points
	viewsBucket   = "views"   // Latest derived stats view
)

var latestViewKey = []byte("latest")

// Store wraps the BoltDB database. History points are keyed
// "login_unixnano" so a cursor seek gives an ordered range scan per
// account.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database under dataPath and ensures the
// buckets exist.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "bridge-stats.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(historyBucket)); err != nil {
			return fmt.Errorf("create history bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(viewsBucket)); err != nil {
			return fmt.Errorf("create views bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutHistoryPoints writes the points for one login. Keys are derived
// from the sample timestamp, so refetching the same window overwrites
// in place instead of duplicating.
func (s *Store) PutHistoryPoints(login string, points []bridge.HistoryPoint) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))

		for _, p := range points {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal history point: %w", err)
			}
			key := fmt.Sprintf("%s_%d", login, p.Date.UTC().UnixNano())
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetHistoryPoints retrieves the cached points for one login within a
// time range, inclusive on both ends. Malformed records are skipped.
func (s *Store) GetHistoryPoints(login string, start, end time.Time) ([]bridge.HistoryPoint, error) {
	var points []bridge.HistoryPoint

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		c := b.Cursor()

		prefix := []byte(login + "_")
		startKey := []byte(fmt.Sprintf("%s_%d", login, start.UTC().UnixNano()))
		endKey := []byte(fmt.Sprintf("%s_%d", login, end.UTC().UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var p bridge.HistoryPoint
			if err := json.Unmarshal(v, &p); err != nil {
				continue
			}
			points = append(points, p)
		}

		return nil
	})

	return points, err
}

// PutView persists the latest derived stats view.
func (s *Store) PutView(v stats.View) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(viewsBucket))

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal view: %w", err)
		}
		return b.Put(latestViewKey, data)
	})
}

// GetView loads the last persisted stats view. The second return value
// reports whether one was stored.
func (s *Store) GetView() (stats.View, bool, error) {
	var v stats.View
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(viewsBucket))
		data := b.Get(latestViewKey)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("unmarshal view: %w", err)
		}
		found = true
		return nil
	})

	return v, found, err
}
