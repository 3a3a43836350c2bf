// Package badgerstore provides an embedded Badger storage driver.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// Config tunes the Badger engine.
type Config struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps everything in RAM (tests, ephemeral dev servers).
	InMemory bool
	// GCInterval is the interval between value log GC runs.
	GCInterval time.Duration
	// GCDiscardRatio is the value log discard ratio (0.0-1.0).
	GCDiscardRatio float64
	// CacheSize is the block cache size in bytes.
	CacheSize int64
	// SyncWrites fsyncs after each write.
	SyncWrites bool
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
		CacheSize:      64 << 20,
	}
}

// Engine implements storage.KV on Badger v3.
type Engine struct {
	db     *badger.DB
	cfg    Config
	logger logger.Logger

	lastGCTime atomic.Int64 // Unix milliseconds

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens (or creates) a Badger database.
func Open(cfg Config, log logger.Logger) (*Engine, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: log}
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	e := &Engine{
		db:     db,
		cfg:    cfg,
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go e.gcLoop()

	log.Info("badger engine started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return e, nil
}

// Get retrieves a value by key.
func (e *Engine) Get(_ context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a key-value pair.
func (e *Engine) Set(_ context.Context, key, value []byte) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a key.
func (e *Engine) Delete(_ context.Context, key []byte) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Scan iterates over keys with a given prefix.
func (e *Engine) Scan(_ context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				break
			}
		}
		return nil
	})
}

// Ping reports whether the database is open.
func (e *Engine) Ping(context.Context) error {
	if e.db.IsClosed() {
		return storage.ErrClosed
	}
	return nil
}

// GC runs value log garbage collection until nothing is left to rewrite.
func (e *Engine) GC() error {
	if e.cfg.InMemory {
		return nil
	}
	runs := 0
	for {
		err := e.db.RunValueLogGC(e.cfg.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}
	e.lastGCTime.Store(time.Now().UnixMilli())
	e.logger.Debug("badger gc completed", "rewrites", runs)
	return nil
}

// Close stops the GC loop and closes the database.
func (e *Engine) Close() error {
	close(e.stopCh)
	<-e.doneCh

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	e.logger.Info("badger engine shutdown complete")
	return nil
}

// RegisterMetrics registers size and GC gauges with reg.
func (e *Engine) RegisterMetrics(reg prometheus.Registerer) {
	e.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "elly",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	e.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "elly",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	e.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "elly",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})
	reg.MustRegister(e.metricsLSMSize, e.metricsValueLogSize, e.metricsLastGCTime)
	e.updateMetrics()
}

func (e *Engine) updateMetrics() {
	if e.metricsLSMSize == nil {
		return
	}
	lsm, vlog := e.db.Size()
	e.metricsLSMSize.Set(float64(lsm))
	e.metricsValueLogSize.Set(float64(vlog))
	if ts := e.lastGCTime.Load(); ts > 0 {
		e.metricsLastGCTime.Set(float64(ts) / 1000.0)
	}
}

func (e *Engine) gcLoop() {
	defer close(e.doneCh)

	interval := e.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.GC(); err != nil {
				e.logger.Error("auto gc failed", "error", err)
			}
			e.updateMetrics()
		case <-e.stopCh:
			return
		}
	}
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
