package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/bookbin/internal/catalog"
	"github.com/erazemk/bookbin/internal/config"
	"github.com/erazemk/bookbin/internal/db"
	"github.com/erazemk/bookbin/internal/enrich"
	"github.com/erazemk/bookbin/internal/events"
	"github.com/erazemk/bookbin/internal/export"
	"github.com/erazemk/bookbin/internal/imaging"
	"github.com/erazemk/bookbin/internal/intake"
	"github.com/erazemk/bookbin/internal/listing"
	"github.com/erazemk/bookbin/internal/pgstore"
	"github.com/erazemk/bookbin/internal/pricing"
	"github.com/erazemk/bookbin/internal/redisx"
	"github.com/erazemk/bookbin/internal/store"
)

// app holds the wired pipeline for one process.
type app struct {
	cfg       config.Config
	store     store.Repository
	publisher events.Publisher
	recorder  *intake.Recorder
	enricher  *enrich.Enricher
	exporter  *export.Exporter

	closers []func()
}

// openStore opens Postgres for postgres:// DSNs and SQLite otherwise.
func openStore(ctx context.Context, dsn string) (store.Repository, func(), error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := pgstore.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("record store ready", "backend", "postgres")
		return s, s.Close, nil
	}

	database, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("ensuring schema: %w", err)
	}
	slog.Info("record store ready", "backend", "sqlite", "path", dsn)
	return store.New(database), func() { database.Close() }, nil
}

func newApp(ctx context.Context, cfg config.Config, dsn string) (*app, error) {
	a := &app{cfg: cfg, publisher: events.Nop{}}

	s, closeStore, err := openStore(ctx, dsn)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, closeStore)

	client := &http.Client{Timeout: 30 * time.Second}
	var srcA, srcB catalog.Source = catalog.NewGoogleBooks(cfg, client), catalog.NewOpenLibrary(cfg, client)

	opts := enrich.Options{}
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		srcA, srcB = cached(srcA, rdb, cfg), cached(srcB, rdb, cfg)
		opts.Locker = redisx.NewLock(rdb, "enrichment", cfg.LockTTL)
		slog.Info("redis connected", "addr", cfg.RedisAddr)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 256)
		kp.Start()
		a.closers = append(a.closers, kp.Close)
		a.publisher = kp
		slog.Info("publishing events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	opts.Publisher = a.publisher

	if cfg.CoverCache {
		opts.Covers = imaging.NewThumbnailer(client, cfg.CoverMaxDimension, cfg.UserAgent)
	}

	est := pricing.New(cfg)
	lb := listing.New(cfg, est)

	a.recorder, err = intake.New(s, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.enricher = enrich.New(s, srcA, srcB, enrich.NewMerger(cfg, est, lb), opts)
	a.exporter = export.New(s, lb, cfg, a.publisher)
	return a, nil
}

func cached(src catalog.Source, rdb *redis.Client, cfg config.Config) catalog.Source {
	return catalog.NewCached(src, rdb, cfg.CacheTTL)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
