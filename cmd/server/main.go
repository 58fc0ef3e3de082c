package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/draft-sync-backend/internal/archive"
	"github.com/DoyleJ11/draft-sync-backend/internal/config"
	"github.com/DoyleJ11/draft-sync-backend/internal/httpapi"
	"github.com/DoyleJ11/draft-sync-backend/internal/hub"
	"github.com/DoyleJ11/draft-sync-backend/internal/inbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openInbox(ctx, cfg)
	if err != nil {
		logger.Fatal("open inbox", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	var archiver hub.Archiver
	if cfg.ArchiveDSN != "" {
		st, err := archive.Open(cfg.ArchiveDSN, logger)
		if err != nil {
			logger.Fatal("open archive", zap.Error(err))
		}
		archiver = st
	}

	h := hub.NewHub(ctx, archiver)
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:       h,
		Inbox:     store,
		BackendID: cfg.BackendID,
		Log:       logger,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("backend_id", cfg.BackendID),
			zap.String("inbox_driver", cfg.InboxDriver))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openInbox(ctx context.Context, cfg config.Config) (inbox.Store, error) {
	switch cfg.InboxDriver {
	case "postgres":
		return inbox.NewPostgres(ctx, cfg.PostgresDSN)
	case "sqlite":
		return inbox.OpenSQLite(cfg.SQLitePath)
	case "memory":
		return inbox.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown inbox driver %q", cfg.InboxDriver)
	}
}
