package mq

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Stagehand/internal/domain"
)

// EventPublisher — то, что нужно EventObserver от Publisher.
type EventPublisher interface {
	PublishRunStarted(ctx context.Context, payload RunStartedPayload) error
	PublishRunFinished(ctx context.Context, payload RunFinishedPayload) error
}

// EventObserver публикует run.started / run.finished.
// Подключается к runner.Coordinator как наблюдатель.
// Ошибки публикации только логируются и не влияют на запуск.
type EventObserver struct {
	publisher EventPublisher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewEventObserver создаёт EventObserver.
func NewEventObserver(publisher EventPublisher, logger *slog.Logger) *EventObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventObserver{
		publisher: publisher,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

func (o *EventObserver) RunStarted(req domain.RunRequest, cfg domain.ExecutionConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	err := o.publisher.PublishRunStarted(ctx, RunStartedPayload{
		RunID:        req.ID,
		FeatureID:    req.Feature.ID,
		FeatureTitle: req.Feature.Title,
		Mode:         cfg.Mode,
		DryRun:       req.DryRun,
	})
	if err != nil {
		o.logger.Warn("failed to publish run.started", "run_id", req.ID, "error", err)
	}
}

func (o *EventObserver) RunFinished(req domain.RunRequest, rec *domain.RunRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	err := o.publisher.PublishRunFinished(ctx, RunFinishedPayload{
		RunID:     req.ID,
		FeatureID: req.Feature.ID,
		State:     req.State,
		Record:    rec,
	})
	if err != nil {
		o.logger.Warn("failed to publish run.finished", "run_id", req.ID, "error", err)
	}
}

func (o *EventObserver) QueueChanged(int) {}
