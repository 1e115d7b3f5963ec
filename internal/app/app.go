package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cctvmonitor/internal/config"
	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/repository/sqlite"
	"cctvmonitor/internal/routes"
	"cctvmonitor/internal/service/ai"
	"cctvmonitor/internal/service/camera"
	"cctvmonitor/internal/service/storage"
	"cctvmonitor/internal/service/surveillance"
	"cctvmonitor/internal/service/websocket"

	"gocv.io/x/gocv"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sqlite.DB
	detector *ai.DetectorService
	hub      *websocket.HubService
	manager  *surveillance.Manager
	server   *http.Server
}

// NewApp loads configuration and wires storage, detection, the alert hub and
// one surveillance loop per camera that could be opened.
func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.LogDirectory, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	snapshotRepo := sqlite.NewSnapshotRepository(db)
	eventRepo := sqlite.NewEventRepository(db)

	detector := ai.NewDetectorService(cfg, log.With("detector"))
	hub := websocket.NewHubService(log.With("alerts"))
	store := storage.NewEventStore(cfg.SnapshotDirectory, snapshotRepo, eventRepo, log.With("storage"))

	sink := surveillance.MultiSink[gocv.Mat]{store, websocket.SinkFor[gocv.Mat](hub)}

	var runners []surveillance.Runner
	for _, cam := range cfg.Cameras {
		source, err := camera.Open(cam, cfg.FrameWidth, cfg.FrameHeight, log.With(cam.Name))
		if err != nil {
			log.Error("Skipping camera: %v", err)
			continue
		}
		runners = append(runners, surveillance.NewLoop[gocv.Mat](cam.Name, source, detector, sink, cfg.Tuning, log))
	}
	if len(runners) == 0 {
		detector.Close()
		db.Close()
		return nil, errors.New("no camera could be opened")
	}

	manager := surveillance.NewManager(runners, log)

	router := routes.SetupRoutes(routes.Dependencies{
		Hub:       hub,
		Pipelines: manager,
		Events:    eventRepo,
		Snapshots: snapshotRepo,
		Logger:    log.With("http"),
	})

	return &App{
		config:   cfg,
		logger:   log,
		db:       db,
		detector: detector,
		hub:      hub,
		manager:  manager,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, the HTTP server fails or every camera
// pipeline has ended, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)
	a.manager.Start(ctx)

	pipelinesDone := make(chan error, 1)
	go func() { pipelinesDone <- a.manager.Wait() }()

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	a.logger.Info("🚀 Surveillance server")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("📷 Cameras: %d", len(a.config.Cameras))
	a.logger.Info("📁 Snapshots: %s", a.config.SnapshotDirectory)
	a.logger.Info("🤖 AI Model: %s", a.config.ModelPath)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown requested")
	case runErr = <-serverErr:
		a.logger.Error("HTTP server failed: %v", runErr)
	case runErr = <-pipelinesDone:
		if runErr != nil {
			a.logger.Error("Camera pipelines ended: %v", runErr)
		}
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	a.manager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("detector close: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	a.logger.Info("🛑 Server stopped")
	return errors.Join(errs...)
}
