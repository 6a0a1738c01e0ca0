package api

import (
	"log/slog"
	"sync"

	"github.com/shaiso/Stagehand/internal/artifact"
	"github.com/shaiso/Stagehand/internal/command"
	"github.com/shaiso/Stagehand/internal/library"
	"github.com/shaiso/Stagehand/internal/repo"
	"github.com/shaiso/Stagehand/internal/runner"
	"github.com/shaiso/Stagehand/internal/scheduler"
	"github.com/shaiso/Stagehand/internal/telemetry"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	features    library.FeatureStore
	envs        *library.Environments
	coordinator *runner.Coordinator
	artifacts   *artifact.Resolver
	commands    *command.Adapter
	scheduler   *scheduler.Scheduler
	records     *repo.RecordRepo
	metrics     *telemetry.Metrics
	corsOrigins []string
	logger      *slog.Logger

	// closing закрывается в Close: открытые websocket-потоки завершаются
	closing   chan struct{}
	closeOnce sync.Once
}

// Config — конфигурация для создания Handler.
//
// Commands, Scheduler, Records и Metrics необязательны: без них
// соответствующие маршруты не регистрируются или отвечают 503.
type Config struct {
	Features    library.FeatureStore
	Envs        *library.Environments
	Coordinator *runner.Coordinator
	Artifacts   *artifact.Resolver
	Commands    *command.Adapter
	Scheduler   *scheduler.Scheduler
	Records     *repo.RecordRepo
	Metrics     *telemetry.Metrics
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	artifacts := cfg.Artifacts
	if artifacts == nil {
		artifacts = artifact.New(artifact.Config{
			Settings: cfg.Coordinator.Settings(),
			Logger:   logger,
		})
	}

	return &Handler{
		features:    cfg.Features,
		envs:        cfg.Envs,
		coordinator: cfg.Coordinator,
		artifacts:   artifacts,
		commands:    cfg.Commands,
		scheduler:   cfg.Scheduler,
		records:     cfg.Records,
		metrics:     cfg.Metrics,
		corsOrigins: cfg.CORSOrigins,
		logger:      logger,
		closing:     make(chan struct{}),
	}
}

// Close завершает открытые потоки лога. http.Server.Shutdown
// не закрывает hijacked-соединения, поэтому вызывается перед ним.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}
