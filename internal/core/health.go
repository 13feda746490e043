package core

import (
	"context"
	"sync"
	"time"
)

// pingTimeout bounds a single background health check.
const pingTimeout = 5 * time.Second

// healthChecker pings the database periodically and remembers the outcome.
type healthChecker struct {
	db       *DB
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.RWMutex
	lastErr  error
	lastPing time.Time
}

// WithHealthCheck pings the database every interval in the background. The
// result is reported by DB.Healthy and failures are logged at warn level.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		if interval > 0 {
			db.health = &healthChecker{db: db, interval: interval, stop: make(chan struct{})}
		}
	}
}

func (h *healthChecker) start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.ping()
			case <-h.stop:
				return
			}
		}
	}()
}

func (h *healthChecker) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	err := h.db.sqlDB.PingContext(ctx)

	h.mu.Lock()
	h.lastErr, h.lastPing = err, time.Now()
	h.mu.Unlock()

	if err != nil {
		h.db.logger.Warn("database health check failed", "database", h.db.driverName, "error", err)
		return
	}
	h.db.logger.Debug("database health check passed", "database", h.db.driverName)
}

func (h *healthChecker) shutdown() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.wg.Wait()
}

// Healthy reports the result of the most recent background ping and when it
// ran. Without WithHealthCheck it pings synchronously.
func (db *DB) Healthy(ctx context.Context) (bool, time.Time) {
	if db.health == nil {
		return db.sqlDB.PingContext(ctx) == nil, time.Now()
	}
	db.health.mu.RLock()
	defer db.health.mu.RUnlock()
	return db.health.lastErr == nil, db.health.lastPing
}
