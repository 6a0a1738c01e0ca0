package library

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/featurefile"
)

// FeatureStore — хранилище features.
// Реализации: Features (память) и repo.FeatureRepo (PostgreSQL).
type FeatureStore interface {
	// List возвращает features, новые первыми.
	List(ctx context.Context) ([]domain.Feature, error)
	Get(ctx context.Context, id string) (*domain.Feature, error)
	Add(ctx context.Context, f domain.Feature) (*domain.Feature, error)
	Delete(ctx context.Context, id string) error
}

// PrepareFeature проверяет Gherkin и заполняет пустые поля:
// Title берётся из строки "Feature:", ID генерируется, CreatedAt = now.
func PrepareFeature(f domain.Feature) (domain.Feature, error) {
	summary, err := featurefile.Parse(f.Content)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		f.Title = summary.Title
	}
	if f.Title == "" {
		return domain.Feature{}, fmt.Errorf("%w: feature title is required", ErrInvalid)
	}

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return f, nil
}

// Features — хранилище features в памяти.
type Features struct {
	mu       sync.RWMutex
	features map[string]domain.Feature
	order    []string // порядок добавления
}

// NewFeatures создаёт хранилище.
func NewFeatures() *Features {
	return &Features{
		features: make(map[string]domain.Feature),
	}
}

// List возвращает features, последние добавленные первыми.
func (s *Features) List(_ context.Context) ([]domain.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Feature, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		result = append(result, s.features[s.order[i]])
	}
	return result, nil
}

// Get возвращает feature по ID.
func (s *Features) Get(_ context.Context, id string) (*domain.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.features[id]
	if !ok {
		return nil, fmt.Errorf("%w: feature %s", ErrNotFound, id)
	}
	return &f, nil
}

// Add проверяет и добавляет feature.
func (s *Features) Add(_ context.Context, f domain.Feature) (*domain.Feature, error) {
	f, err := PrepareFeature(f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.features[f.ID]; ok {
		return nil, fmt.Errorf("%w: feature %s", ErrAlreadyExists, f.ID)
	}
	s.features[f.ID] = f
	s.order = append(s.order, f.ID)

	return &f, nil
}

// Delete удаляет feature.
func (s *Features) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.features[id]; !ok {
		return fmt.Errorf("%w: feature %s", ErrNotFound, id)
	}
	delete(s.features, id)

	for i, fid := range s.order {
		if fid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Tags собирает все теги features в отсортированном порядке.
func Tags(ctx context.Context, store FeatureStore) ([]string, error) {
	features, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, f := range features {
		for _, t := range f.Tags() {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// WithTag возвращает features с тегом (все, если тег пустой), новые первыми.
func WithTag(ctx context.Context, store FeatureStore, tag string) ([]domain.Feature, error) {
	features, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Feature, 0, len(features))
	for _, f := range features {
		if f.HasTag(tag) {
			result = append(result, f)
		}
	}
	return result, nil
}

// FindByTitle ищет первый feature, в названии которого есть query (без учёта регистра).
func FindByTitle(ctx context.Context, store FeatureStore, query string) (*domain.Feature, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("%w: empty scenario name", ErrInvalid)
	}

	features, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, f := range features {
		if strings.Contains(strings.ToLower(f.Title), q) {
			return &f, nil
		}
	}
	return nil, fmt.Errorf("%w: no feature matches %q", ErrNotFound, query)
}
