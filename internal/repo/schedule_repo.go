package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Stagehand/internal/domain"
)

// ScheduleRepo хранит schedules в PostgreSQL.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// ScheduleFilter — фильтр и пагинация List.
type ScheduleFilter struct {
	Enabled *bool
	Limit   int // default: 100
	Offset  int
}

const selectSchedule = `
	SELECT id, name, cron_expr, tag, dry_run, timezone, enabled,
	       next_due_at, last_run_at, last_enqueued, created_at, updated_at
	FROM schedules`

// scheduleArgs — именованные параметры для INSERT и UPDATE.
func scheduleArgs(s *domain.Schedule) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":            s.ID,
		"name":          nullString(s.Name),
		"cron_expr":     s.CronExpr,
		"tag":           nullString(s.Tag),
		"dry_run":       s.DryRun,
		"timezone":      s.Timezone,
		"enabled":       s.Enabled,
		"next_due_at":   s.NextDueAt,
		"last_run_at":   s.LastRunAt,
		"last_enqueued": s.LastEnqueued,
		"created_at":    s.CreatedAt,
		"updated_at":    s.UpdatedAt,
	}
}

func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedules (id, name, cron_expr, tag, dry_run, timezone, enabled,
		                       next_due_at, last_run_at, last_enqueued, created_at, updated_at)
		VALUES (@id, @name, @cron_expr, @tag, @dry_run, @timezone, @enabled,
		        @next_due_at, @last_run_at, @last_enqueued, @created_at, @updated_at)`,
		scheduleArgs(s))
	switch {
	case isUniqueViolation(err):
		return ErrAlreadyExists
	case err != nil:
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, selectSchedule+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSchedule)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return &s, nil
}

// List возвращает schedules, новые первыми.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, selectSchedule+`
		WHERE (@enabled::boolean IS NULL OR enabled = @enabled)
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"enabled": filter.Enabled, "limit": limit, "offset": filter.Offset})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return collectSchedules(rows)
}

// ListDue возвращает включённые schedules с next_due_at <= now, ранние первыми.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, selectSchedule+`
		WHERE enabled AND next_due_at <= $1
		ORDER BY next_due_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	return collectSchedules(rows)
}

func (r *ScheduleRepo) Update(ctx context.Context, s *domain.Schedule) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE schedules
		SET name = @name, cron_expr = @cron_expr, tag = @tag, dry_run = @dry_run,
		    timezone = @timezone, enabled = @enabled, next_due_at = @next_due_at,
		    last_run_at = @last_run_at, last_enqueued = @last_enqueued, updated_at = @updated_at
		WHERE id = @id`,
		scheduleArgs(s))
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled меняет только флаг; next_due_at пересчитывает scheduler.Scheduler.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE schedules SET enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("set schedule enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectSchedules(rows pgx.Rows) ([]domain.Schedule, error) {
	schedules, err := pgx.CollectRows(rows, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("scan schedules: %w", err)
	}
	if schedules == nil {
		schedules = []domain.Schedule{}
	}
	return schedules, nil
}

func scanSchedule(row pgx.CollectableRow) (domain.Schedule, error) {
	var s domain.Schedule
	var name, tag *string

	err := row.Scan(
		&s.ID, &name, &s.CronExpr, &tag, &s.DryRun, &s.Timezone, &s.Enabled,
		&s.NextDueAt, &s.LastRunAt, &s.LastEnqueued, &s.CreatedAt, &s.UpdatedAt,
	)
	s.Name = derefString(name)
	s.Tag = derefString(tag)
	return s, err
}
