package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/library"
)

// Enqueuer — очередь запусков (runner.Coordinator).
type Enqueuer interface {
	Enqueue(reqs ...*domain.RunRequest) error
}

// NewRunRequestHandler возвращает обработчик runs.requested.
//
// Заявка без подходящих features подтверждается и пропускается;
// ошибка постановки в очередь возвращается, и сообщение вернётся в очередь.
func NewRunRequestHandler(features library.FeatureStore, queue Enqueuer, logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, d *Delivery) error {
		if d.Message.Type != MessageTypeRunRequested {
			logger.Warn("unexpected message type, skipping", "type", d.Message.Type, "message_id", d.Message.ID)
			return nil
		}

		payload, err := ParsePayload[RunRequestedPayload](&d.Message)
		if err != nil {
			logger.Error("invalid run.requested payload", "message_id", d.Message.ID, "error", err)
			return nil
		}
		payload.Tag = domain.NormalizeTag(payload.Tag)

		selected, err := selectFeatures(ctx, features, payload, logger)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			logger.Warn("run.requested matched no features",
				"message_id", d.Message.ID,
				"tag", payload.Tag,
				"feature_ids", payload.FeatureIDs,
			)
			return nil
		}

		var tags []string
		if payload.Tag != "" {
			tags = []string{payload.Tag}
		}

		reqs := make([]*domain.RunRequest, 0, len(selected))
		for _, f := range selected {
			reqs = append(reqs, domain.NewRunRequest(f, tags, payload.DryRun))
		}

		if err := queue.Enqueue(reqs...); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}

		logger.Info("enqueued runs from message",
			"message_id", d.Message.ID,
			"count", len(reqs),
			"dry_run", payload.DryRun,
		)
		return nil
	}
}

// selectFeatures возвращает features в порядке исполнения.
func selectFeatures(ctx context.Context, store library.FeatureStore, p RunRequestedPayload, logger *slog.Logger) ([]domain.Feature, error) {
	if len(p.FeatureIDs) > 0 {
		result := make([]domain.Feature, 0, len(p.FeatureIDs))
		for _, id := range p.FeatureIDs {
			f, err := store.Get(ctx, id)
			if errors.Is(err, library.ErrNotFound) {
				logger.Warn("requested feature not found", "feature_id", id)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("get feature %s: %w", id, err)
			}
			result = append(result, *f)
		}
		return result, nil
	}

	tagged, err := library.WithTag(ctx, store, p.Tag)
	if err != nil {
		return nil, fmt.Errorf("select features: %w", err)
	}

	// Библиотека отдаёт новые первыми; исполняем в порядке добавления
	result := make([]domain.Feature, 0, len(tagged))
	for i := len(tagged) - 1; i >= 0; i-- {
		result = append(result, tagged[i])
	}
	return result, nil
}
