package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/library"
)

// FeatureRepo — хранилище features в PostgreSQL.
// Реализует library.FeatureStore и возвращает ошибки пакета library.
type FeatureRepo struct {
	pool *pgxpool.Pool
}

// NewFeatureRepo создаёт новый FeatureRepo.
func NewFeatureRepo(pool *pgxpool.Pool) *FeatureRepo {
	return &FeatureRepo{pool: pool}
}

var _ library.FeatureStore = (*FeatureRepo)(nil)

// List возвращает features, новые первыми.
func (r *FeatureRepo) List(ctx context.Context) ([]domain.Feature, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, content, steps_code, created_at
		FROM features
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	features := make([]domain.Feature, 0)
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		features = append(features, *f)
	}
	return features, rows.Err()
}

// Get возвращает feature по ID.
func (r *FeatureRepo) Get(ctx context.Context, id string) (*domain.Feature, error) {
	return scanFeature(r.pool.QueryRow(ctx, `
		SELECT id, title, content, steps_code, created_at
		FROM features
		WHERE id = $1
	`, id))
}

// Add проверяет и сохраняет feature.
func (r *FeatureRepo) Add(ctx context.Context, f domain.Feature) (*domain.Feature, error) {
	f, err := library.PrepareFeature(f)
	if err != nil {
		return nil, err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO features (id, title, content, steps_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, f.ID, f.Title, f.Content, nullString(f.StepsCode), f.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: feature %s", library.ErrAlreadyExists, f.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert feature: %w", err)
	}
	return &f, nil
}

// Delete удаляет feature.
func (r *FeatureRepo) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM features WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feature: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: feature %s", library.ErrNotFound, id)
	}
	return nil
}

func scanFeature(row pgx.Row) (*domain.Feature, error) {
	var f domain.Feature
	var stepsCode *string

	err := row.Scan(&f.ID, &f.Title, &f.Content, &stepsCode, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan feature: %w", err)
	}

	f.StepsCode = derefString(stepsCode)
	return &f, nil
}
