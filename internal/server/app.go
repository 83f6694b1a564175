// Package server assembles the board application: storage, services and the
// HTTP surface, wired from a single Config.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dkorolev/slateboard/internal/logging"
	"github.com/dkorolev/slateboard/internal/server/config"
	"github.com/dkorolev/slateboard/internal/server/httpapi"
	"github.com/dkorolev/slateboard/internal/server/repositories/repomanager"
	"github.com/dkorolev/slateboard/internal/server/services"
	"github.com/dkorolev/slateboard/internal/server/storage"
)

// App owns the process-level resources and runs the HTTP server until the
// process is asked to stop.
type App struct {
	cfg    *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// NewApp opens the database, applies migrations, picks the blob backend and
// builds the service graph.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, rm, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	identity := services.NewIdentityService(db, rm, cfg)
	board := services.NewBoardService(db, rm, logger)
	attachments := services.NewAttachmentService(db, rm, blobs,
		cfg.MediaDir, cfg.MaxUploadBytes, cfg.MaxFilesPerUpload, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
		server: httpapi.NewServer(cfg, logger, identity, board, attachments),
	}, nil
}

// newBlobStore selects S3 when a bucket is configured, local disk otherwise.
func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.S3Bucket != "" {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing s3 storage: %w", err)
		}
		return store, nil
	}

	store, err := storage.NewLocalStore(filepath.Join(cfg.DataDir, "uploads"))
	if err != nil {
		return nil, fmt.Errorf("initializing local storage: %w", err)
	}
	return store, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts down gracefully and
// releases the database.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if err := a.db.Close(); err != nil {
			a.logger.Error(ctx, "closing database", "error", err.Error())
		}
	}()

	return a.server.Run(ctx)
}
