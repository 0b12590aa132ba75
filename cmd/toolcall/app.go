package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonwraymond/toolcall/catalog"
	"github.com/jonwraymond/toolcall/config"
	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/dispatch"
	"github.com/jonwraymond/toolcall/dispatch/redisstore"
	"github.com/jonwraymond/toolcall/executor"
	"github.com/jonwraymond/toolcall/executor/notebook"
	"github.com/jonwraymond/toolcall/httpapi"
	"github.com/jonwraymond/toolcall/logging"
	"github.com/jonwraymond/toolcall/remote"
	"github.com/jonwraymond/toolcall/storage"
	"github.com/jonwraymond/toolcall/storage/memory"
	"github.com/jonwraymond/toolcall/storage/sqlite"
)

// app is everything a command needs, built from one config.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *prometheus.Registry
	artifacts  storage.Store
	side       dispatch.SideChannel
	client     *remote.Client
	catalog    *catalog.Catalog
	dispatcher *dispatch.Dispatcher

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if logOut == nil {
		logOut = os.Stderr
	}

	a := &app{
		cfg:     cfg,
		logger:  logging.NewWriter(logOut, level),
		metrics: prometheus.NewRegistry(),
	}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, a.cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("open artifact store: %w", err)
		}
		a.artifacts = st
	default:
		a.artifacts = memory.New()
	}
	a.closers = append(a.closers, a.artifacts)

	switch a.cfg.Lifecycle.Driver {
	case config.DriverRedis:
		rs := redisstore.New(a.cfg.Lifecycle.Addr, a.cfg.Lifecycle.Password, a.cfg.Lifecycle.DB,
			redisstore.WithPrefix(a.cfg.Lifecycle.Prefix),
			redisstore.WithTTL(a.cfg.Lifecycle.TTL),
		)
		a.closers = append(a.closers, rs)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("connect lifecycle store: %w", err)
		}
		a.side = rs
	default:
		a.side = dispatch.NewMemoryStore()
	}

	a.client = remote.New(
		remote.WithHostCapabilities(a.cfg.Capabilities()),
		remote.WithCallTimeout(a.cfg.CallTimeout),
		remote.WithLogger(a.logger.With("component", "remote")),
	)

	nb, err := notebook.New(notebook.NewMemoryStore(), a.logger.With("component", "notebook"))
	if err != nil {
		return err
	}
	reg := executor.NewRegistry()
	if err := reg.Register(nb); err != nil {
		return err
	}

	a.catalog = catalog.New(
		catalog.WithRemoteClient(a.client),
		catalog.WithLogger(a.logger.With("component", "catalog")),
	)
	for _, ex := range reg.List() {
		if err := a.catalog.AddExecutor(ex); err != nil {
			return err
		}
	}

	descs, err := a.cfg.Descriptors()
	if err != nil {
		return err
	}

	normalizer := content.NewNormalizer(a.artifacts)
	normalizer.Prefix = a.cfg.Storage.Prefix
	normalizer.Logger = a.logger.With("component", "content")
	normalizer.URLFor = httpapi.ArtifactURL

	a.dispatcher = dispatch.New(
		dispatch.WithRegistry(reg),
		dispatch.WithRemoteClient(a.client),
		dispatch.WithServers(dispatch.NewServers(descs)),
		dispatch.WithNormalizer(normalizer),
		dispatch.WithSideChannel(a.side),
		dispatch.WithManifests(a.catalog),
		dispatch.WithLogger(a.logger.With("component", "dispatch")),
		dispatch.WithMetrics(dispatch.NewMetrics(a.metrics)),
		dispatch.WithBaseURL(a.cfg.HTTP.BaseURL),
		dispatch.WithMaxConcurrency(a.cfg.MaxConcurrency),
	)
	return nil
}

// refreshRemotes loads the tool lists of every configured server into the
// catalog. A server that cannot be reached is logged and skipped.
func (a *app) refreshRemotes(ctx context.Context) {
	servers := a.dispatcher.Servers()
	for _, ns := range servers.Names() {
		d, ok := servers.Get(ns)
		if !ok || !a.catalog.Stale(ns, d) {
			continue
		}
		if _, err := a.catalog.RefreshRemote(ctx, ns, d); err != nil {
			a.logger.Warn("skipping server", "namespace", ns, "error", err)
		}
	}
}

// Close releases stores in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
