package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/captainslog/internal/dbx"
)

// Cache stores the displayed list in the local SQLite file so it can be
// shown before the repository is reachable.
type Cache struct {
	db *sql.DB
	// mu orders saves so an older snapshot never lands after a newer one.
	mu sync.Mutex
}

func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Save overwrites the cached list, keeping its order.
func (c *Cache) Save(ctx context.Context, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, entries)
}

func (c *Cache) save(ctx context.Context, entries []Entry) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM log_cache`); err != nil {
			return fmt.Errorf("clear log cache: %w", err)
		}
		for i, e := range entries {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO log_cache (id, position, recorded_at, duration_ms, transcript, status, storage_failed, has_audio)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, i, e.Date.UTC(), e.DurationMs, e.Transcript, string(e.Status), e.StorageFailed, e.HasAudio)
			if err != nil {
				return fmt.Errorf("cache entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// Load returns the cached list in stored order; empty when nothing is cached.
func (c *Cache) Load(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, recorded_at, duration_ms, transcript, status, storage_failed, has_audio
		FROM log_cache ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load log cache: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			status string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.DurationMs, &e.Transcript, &status, &e.StorageFailed, &e.HasAudio); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		e.Status = statusOf(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Attach keeps the cache in sync with l. Errors go to onErr. Subscribers
// run on the goroutine that changed l, so the snapshot is taken under the
// save lock: the last save to finish always holds the newest list.
func (c *Cache) Attach(ctx context.Context, l *Log, onErr func(error)) (cancel func()) {
	return l.Subscribe(func(Change) {
		c.mu.Lock()
		err := c.save(ctx, l.Snapshot())
		c.mu.Unlock()
		if err != nil && onErr != nil {
			onErr(err)
		}
	})
}
