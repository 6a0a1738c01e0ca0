package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/repo"
)

// Store — хранилище schedules.
// Реализации: MemoryStore и repo.ScheduleRepo.
type Store interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

var _ Store = (*repo.ScheduleRepo)(nil)

// MemoryStore — хранилище schedules в памяти, когда БД не настроена.
// Ошибки совпадают с repo.ScheduleRepo.
type MemoryStore struct {
	mu        sync.RWMutex
	schedules map[uuid.UUID]domain.Schedule
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schedules: make(map[uuid.UUID]domain.Schedule)}
}

func (m *MemoryStore) Create(_ context.Context, schedule *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[schedule.ID]; ok {
		return repo.ErrAlreadyExists
	}
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &s, nil
}

// List возвращает schedules, новые первыми.
func (m *MemoryStore) List(_ context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error) {
	m.mu.RLock()
	all := make([]domain.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		if filter.Enabled != nil && s.Enabled != *filter.Enabled {
			continue
		}
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, filter.Limit, filter.Offset), nil
}

// ListDue возвращает включённые schedules с NextDueAt <= now, ранние первыми.
func (m *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	m.mu.RLock()
	due := make([]domain.Schedule, 0)
	for _, s := range m.schedules {
		if s.IsDue(now) {
			due = append(due, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextDueAt.Before(*due[j].NextDueAt)
	})
	return paginate(due, limit, 0), nil
}

func (m *MemoryStore) Update(_ context.Context, schedule *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[schedule.ID]; !ok {
		return repo.ErrNotFound
	}
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *MemoryStore) SetEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.schedules[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Enabled = enabled
	s.UpdatedAt = time.Now()
	m.schedules[id] = s
	return nil
}

func paginate(items []domain.Schedule, limit, offset int) []domain.Schedule {
	if offset >= len(items) {
		return []domain.Schedule{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
