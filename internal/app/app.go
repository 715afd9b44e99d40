// Package app wires the workspace, store, dataset manager, event bus, and
// RPC transport into one running process, and owns the background task
// runtime and graceful shutdown as a reusable library, separate from the
// thin cobra entrypoint that constructs and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/dataset"
	"github.com/friconhq/fricon/internal/events"
	"github.com/friconhq/fricon/internal/rpc"
	"github.com/friconhq/fricon/internal/store"
	"github.com/friconhq/fricon/internal/workspace"
)

// Config configures the app shell. WorkspaceRoot is the only required
// field; the rest have defaults matching the component packages' own.
type Config struct {
	WorkspaceRoot  string
	EventBuffer    int
	StoreMaxWorker int
	LogLevel       applog.Level
	LogJSON        bool
}

// App is an opened workspace with every component wired on top of it,
// ready to Serve. The zero value is not usable; construct with Open.
type App struct {
	cfg Config

	ws      *workspace.Workspace
	pool    *store.Pool
	st      *store.Store
	broker  *events.Broker
	manager *dataset.Manager
	rpc     *rpc.Transport

	log zerolog.Logger
}

// Open opens an already-initialized workspace (see workspace.Init for
// first-time setup), wires every component on top of it, runs crash
// recovery, and binds the RPC transport — but does not yet Serve.
func Open(cfg Config) (*App, error) {
	applog.Init(applog.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	log := applog.WithComponent("app")

	ws, err := workspace.Open(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	pool, err := store.Open(ws.StorePath(), store.Options{MaxWorkers: cfg.StoreMaxWorker})
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	eventBuffer := cfg.EventBuffer
	broker := events.NewBroker(eventBuffer)

	st := store.New(pool)
	mgr := dataset.New(st, ws, broker)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := mgr.RecoverOnStartup(ctx); err != nil {
		pool.Close()
		ws.Close()
		return nil, fmt.Errorf("recover on startup: %w", err)
	}

	transport, err := rpc.Listen(ws.SocketPath(), mgr)
	if err != nil {
		pool.Close()
		ws.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	log.Info().Str("workspace", ws.Root()).Str("socket", ws.SocketPath()).Msg("app ready")

	return &App{
		cfg:     cfg,
		ws:      ws,
		pool:    pool,
		st:      st,
		broker:  broker,
		manager: mgr,
		rpc:     transport,
		log:     log,
	}, nil
}

// Manager exposes the dataset manager for embedders that drive it
// in-process instead of over RPC.
func (a *App) Manager() *dataset.Manager { return a.manager }

// Serve blocks until ctx is cancelled, running the RPC transport and
// returning its error once shut down. A cancelled ctx triggers a graceful
// stop rather than an abrupt one.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.rpc.Serve()
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("rpc transport: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down")
		a.rpc.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// Close releases every resource Open acquired. Call after Serve returns.
func (a *App) Close() error {
	if err := a.pool.Close(); err != nil {
		a.log.Error().Err(err).Msg("close store")
	}
	return a.ws.Close()
}
