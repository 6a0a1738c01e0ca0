package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/library"
)

// Enqueuer — очередь запусков (runner.Coordinator).
type Enqueuer interface {
	Enqueue(reqs ...*domain.RunRequest) error
}

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	store     Store
	features  library.FeatureStore
	queue     Enqueuer
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
	now       func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Store     Store
	Features  library.FeatureStore
	Queue     Enqueuer
	Logger    *slog.Logger
	BatchSize int           // количество schedules за один тик (default: 100)
	Interval  time.Duration // период тиков (default: 1s)

	// Now — источник времени для тестов (default: time.Now).
	Now func() time.Time
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		store:     cfg.Store,
		features:  cfg.Features,
		queue:     cfg.Queue,
		logger:    logger,
		batchSize: batchSize,
		interval:  interval,
		now:       now,
	}
}

// Store возвращает хранилище schedules.
func (s *Scheduler) Store() Store {
	return s.store
}

// Create проверяет параметры и сохраняет новый schedule.
func (s *Scheduler) Create(ctx context.Context, params Params) (*domain.Schedule, error) {
	sched, err := NewSchedule(params, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	s.logger.Info("schedule created",
		"schedule_id", sched.ID,
		"cron_expr", sched.CronExpr,
		"tag", sched.Tag,
		"next_due_at", sched.NextDueAt,
	)
	return sched, nil
}

// SetEnabled включает или выключает schedule. При включении NextDueAt
// считается от текущего момента: пропущенные срабатывания не догоняются.
func (s *Scheduler) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*domain.Schedule, error) {
	sched, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sched.Enabled = enabled
	sched.UpdatedAt = now
	if enabled {
		next, err := CalculateNextDue(sched, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		sched.NextDueAt = &next
	}

	if err := s.store.Update(ctx, sched); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	s.logger.Info("schedule toggled", "schedule_id", id, "enabled", enabled)
	return sched, nil
}

// Run вызывает Tick каждые interval, пока ctx не отменён.
func (s *Scheduler) Run(ctx context.Context) error {
	tk := time.NewTicker(s.interval)
	defer tk.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)

	for {
		select {
		case <-tk.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		}
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого ставит в очередь features с его тегом
// 3. Обновляет next_due_at
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	schedules, err := s.store.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, enqueued int
	for i := range schedules {
		sched := &schedules[i]

		n, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		enqueued += n
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"enqueued", enqueued,
	)

	return nil
}

// processSchedule ставит заявки одного schedule и сдвигает next_due_at.
// Возвращает количество поставленных заявок.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (int, error) {
	features, err := library.WithTag(ctx, s.features, sched.Tag)
	if err != nil {
		return 0, fmt.Errorf("select features: %w", err)
	}

	// Очередь исполняет в порядке постановки: старые features первыми
	reqs := make([]*domain.RunRequest, 0, len(features))
	for i := len(features) - 1; i >= 0; i-- {
		var tags []string
		if sched.Tag != "" {
			tags = []string{sched.Tag}
		}
		reqs = append(reqs, domain.NewRunRequest(features[i], tags, sched.DryRun))
	}

	if len(reqs) > 0 {
		if err := s.queue.Enqueue(reqs...); err != nil {
			return 0, fmt.Errorf("enqueue: %w", err)
		}
	} else {
		s.logger.Warn("schedule matched no features",
			"schedule_id", sched.ID,
			"tag", sched.Tag,
		)
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		return len(reqs), err
	}

	sched.RecordFire(now, len(reqs), nextDue)
	if err := s.store.Update(ctx, sched); err != nil {
		return len(reqs), fmt.Errorf("update schedule: %w", err)
	}

	s.logger.Info("schedule fired",
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
		"enqueued", len(reqs),
		"next_due_at", nextDue,
	)

	return len(reqs), nil
}
