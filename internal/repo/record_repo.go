package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Stagehand/internal/domain"
)

// RecordRepo — архив записей о запусках.
//
// В отличие от ledger (ограниченный буфер в памяти), архив хранит
// все записи и переживает перезапуск.
type RecordRepo struct {
	pool *pgxpool.Pool
}

// NewRecordRepo создаёт новый RecordRepo.
func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

// Save сохраняет запись.
func (r *RecordRepo) Save(ctx context.Context, rec *domain.RunRecord) error {
	screenshotsJSON, err := json.Marshal(rec.Screenshots)
	if err != nil {
		return fmt.Errorf("marshal screenshots: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO run_records (id, origin, feature_id, feature_title, status,
		                         duration_ms, screenshots, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rec.ID,
		rec.Origin,
		rec.FeatureID,
		rec.FeatureTitle,
		rec.Status,
		rec.Duration.Milliseconds(),
		screenshotsJSON,
		rec.Timestamp,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *RecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RunRecord, error) {
	return scanRecord(r.pool.QueryRow(ctx, `
		SELECT id, origin, feature_id, feature_title, status, duration_ms, screenshots, created_at
		FROM run_records
		WHERE id = $1
	`, id))
}

// RecordFilter — параметры фильтрации архива.
type RecordFilter struct {
	FeatureID string
	Status    domain.RunStatus
	Limit     int
	Offset    int
}

// List возвращает записи, новые первыми.
func (r *RecordRepo) List(ctx context.Context, filter RecordFilter) ([]domain.RunRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, origin, feature_id, feature_title, status, duration_ms, screenshots, created_at
		FROM run_records
		WHERE ($1::text IS NULL OR feature_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`,
		nullString(filter.FeatureID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.RunRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var durationMs int64
	var screenshotsJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.Origin,
		&rec.FeatureID,
		&rec.FeatureTitle,
		&rec.Status,
		&durationMs,
		&screenshotsJSON,
		&rec.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run record: %w", err)
	}

	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if screenshotsJSON != nil {
		if err := json.Unmarshal(screenshotsJSON, &rec.Screenshots); err != nil {
			return nil, fmt.Errorf("unmarshal screenshots: %w", err)
		}
	}
	return &rec, nil
}

// Archive сохраняет завершённые запуски в RecordRepo.
// Подключается к runner.Coordinator как наблюдатель.
type Archive struct {
	records *RecordRepo
	timeout time.Duration
	logger  *slog.Logger
}

// NewArchive создаёт Archive.
func NewArchive(records *RecordRepo, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{records: records, timeout: 5 * time.Second, logger: logger}
}

func (a *Archive) RunStarted(domain.RunRequest, domain.ExecutionConfig) {}

// RunFinished сохраняет запись. Ошибки только логируются: архив не влияет на запуск.
func (a *Archive) RunFinished(req domain.RunRequest, rec *domain.RunRecord) {
	if rec == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.records.Save(ctx, rec); err != nil {
		a.logger.Error("failed to archive run record", "run_id", req.ID, "error", err)
	}
}

func (a *Archive) QueueChanged(int) {}
