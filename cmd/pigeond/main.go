package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pigeonmsg/pigeond/internal/infra/config"
	"github.com/pigeonmsg/pigeond/internal/infra/logging"
	"github.com/pigeonmsg/pigeond/internal/infra/transport/http"
	"github.com/pigeonmsg/pigeond/internal/repo/snapshot"
	"github.com/pigeonmsg/pigeond/internal/svc/msgsvc"
)

const (
	appName = "pigeon"
	svcName = "pigeond"
)

type Config struct {
	config.EnvConfig

	Log      logging.LoggerConfig       `envPrefix:"LOG_"`
	Service  msgsvc.ServiceConfig       `envPrefix:"SVC_"`
	HTTP     msgsvc.HTTPTransportConfig `envPrefix:"HTTP_"`
	Snapshot SnapshotConfig             `envPrefix:"SNAPSHOT_"`
}

// SnapshotConfig selects and configures the snapshot storage backend.
type SnapshotConfig struct {
	// Backend selects the snapshot storage ("file" or "sqlite")
	Backend string `env:"BACKEND" default:"file"`

	File   snapshot.FileSystemSnapshotRepositoryConfig `envPrefix:"FILE_"`
	SQLite snapshot.SQLiteSnapshotRepositoryConfig     `envPrefix:"SQLITE_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.LoadDotenv(".env"); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.pigeond")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	repoFactory, err := snapshotFactory(cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("snapshot factory: %w", err)
	}

	msgSvc, err := msgsvc.NewMessageService(ctx, repoFactory, cfg.Service)
	if err != nil {
		return fmt.Errorf("new message service: %w", err)
	}
	defer msgSvc.Close()

	httpTransport := msgsvc.NewHTTPTransport(msgSvc, cfg.HTTP)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	// Handlers are drained; persist state before exiting. A failure here
	// risks silent data loss and must reach the operator.
	if err := msgSvc.SaveSnapshot(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

func snapshotFactory(cfg SnapshotConfig) (snapshot.RepositoryFactory, error) {
	switch cfg.Backend {
	case "file":
		return snapshot.FileSystemSnapshotRepositoryFactory(cfg.File), nil
	case "sqlite":
		return snapshot.SQLiteSnapshotRepositoryFactory(cfg.SQLite), nil
	default:
		//nolint:err113
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
