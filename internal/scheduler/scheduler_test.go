package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/library"
	"github.com/shaiso/Stagehand/internal/repo"
)

type fakeQueue struct {
	mu   sync.Mutex
	reqs []*domain.RunRequest
	err  error
}

func (q *fakeQueue) Enqueue(reqs ...*domain.RunRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.reqs = append(q.reqs, reqs...)
	return nil
}

func newFeatures(t *testing.T) *library.Features {
	t.Helper()
	store := library.NewFeatures()
	for _, f := range []domain.Feature{
		{ID: "login", Content: "@smoke\nFeature: Login\n"},
		{ID: "search", Content: "Feature: Search\n"},
		{ID: "checkout", Content: "@smoke\nFeature: Checkout\n"},
	} {
		if _, err := store.Add(context.Background(), f); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return store
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCalculateNextDue(t *testing.T) {
	from := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cronExpr string
		timezone string
		want     time.Time
	}{
		{"every 5 minutes", "*/5 * * * *", "UTC", time.Date(2024, 3, 10, 8, 35, 0, 0, time.UTC)},
		{"daily at 9 UTC", "0 9 * * *", "UTC", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)},
		// 9:00 в Москве (UTC+3) = 6:00 UTC, сегодня уже прошло
		{"daily at 9 Moscow", "0 9 * * *", "Europe/Moscow", time.Date(2024, 3, 11, 6, 0, 0, 0, time.UTC)},
		{"invalid timezone falls back to UTC", "0 9 * * *", "Mars/Base", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateNextDue(&domain.Schedule{CronExpr: tt.cronExpr, Timezone: tt.timezone}, from)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewSchedule(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

	sched, err := NewSchedule(Params{Name: "nightly", CronExpr: "0 2 * * *", Tag: "smoke"}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.Tag != "@smoke" {
		t.Errorf("tag should get @ prefix, got %q", sched.Tag)
	}
	if sched.Timezone != "UTC" || !sched.Enabled {
		t.Errorf("unexpected defaults %+v", sched)
	}
	if sched.NextDueAt == nil || !sched.NextDueAt.Equal(time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected next due %v", sched.NextDueAt)
	}
}

func TestNewSchedule_Invalid(t *testing.T) {
	tests := []struct {
		name string
		params Params
	}{
		{"empty cron", Params{}},
		{"bad cron", Params{CronExpr: "every day"}},
		{"seconds field", Params{CronExpr: "0 0 9 * * *"}},
		{"bad timezone", Params{CronExpr: "0 9 * * *", Timezone: "Mars/Base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchedule(tt.params, time.Now())
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}

func TestTick_EnqueuesTaggedFeatures(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	store := NewMemoryStore()
	queue := &fakeQueue{}

	s := New(Config{Store: store, Features: newFeatures(t), Queue: queue, Now: fixedNow(now)})

	sched, err := s.Create(context.Background(), Params{CronExpr: "*/5 * * * *", Tag: "@smoke", DryRun: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Ещё не пора
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(queue.reqs) != 0 {
		t.Fatalf("nothing should be enqueued before due, got %d", len(queue.reqs))
	}

	// Через 5 минут — срабатывает
	s.now = fixedNow(now.Add(5 * time.Minute))
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(queue.reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(queue.reqs))
	}
	// Порядок добавления в библиотеку: login, затем checkout
	if queue.reqs[0].Feature.ID != "login" || queue.reqs[1].Feature.ID != "checkout" {
		t.Errorf("unexpected order %s, %s", queue.reqs[0].Feature.ID, queue.reqs[1].Feature.ID)
	}
	for _, r := range queue.reqs {
		if !r.DryRun || len(r.Tags) != 1 || r.Tags[0] != "@smoke" {
			t.Errorf("request should carry schedule options, got %+v", r)
		}
	}

	updated, _ := store.GetByID(context.Background(), sched.ID)
	if updated.LastEnqueued != 2 || updated.LastRunAt == nil {
		t.Errorf("fire not recorded: %+v", updated)
	}
	want := now.Add(10 * time.Minute)
	if !updated.NextDueAt.Equal(want) {
		t.Errorf("expected next due %s, got %s", want, updated.NextDueAt)
	}
}

func TestTick_EmptyTagSelectsAll(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	queue := &fakeQueue{}
	s := New(Config{Store: NewMemoryStore(), Features: newFeatures(t), Queue: queue, Now: fixedNow(now)})

	if _, err := s.Create(context.Background(), Params{CronExpr: "* * * * *"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	s.now = fixedNow(now.Add(time.Minute))
	_ = s.Tick(context.Background())

	if len(queue.reqs) != 3 {
		t.Errorf("expected all 3 features, got %d", len(queue.reqs))
	}
}

func TestTick_EnqueueErrorKeepsSchedule(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	store := NewMemoryStore()
	queue := &fakeQueue{err: errors.New("coordinator stopped")}
	s := New(Config{Store: store, Features: newFeatures(t), Queue: queue, Now: fixedNow(now)})

	sched, _ := s.Create(context.Background(), Params{CronExpr: "* * * * *"})
	due := *sched.NextDueAt

	s.now = fixedNow(now.Add(time.Minute))
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick should not fail on schedule errors: %v", err)
	}

	// next_due_at не сдвинут — попробуем на следующем тике
	got, _ := store.GetByID(context.Background(), sched.ID)
	if !got.NextDueAt.Equal(due) {
		t.Errorf("next due should stay %s, got %s", due, got.NextDueAt)
	}
}

func TestTick_DisabledSkipped(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	store := NewMemoryStore()
	queue := &fakeQueue{}
	s := New(Config{Store: store, Features: newFeatures(t), Queue: queue, Now: fixedNow(now)})

	sched, _ := s.Create(context.Background(), Params{CronExpr: "* * * * *"})
	if err := store.SetEnabled(context.Background(), sched.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	s.now = fixedNow(now.Add(time.Hour))
	_ = s.Tick(context.Background())
	if len(queue.reqs) != 0 {
		t.Errorf("disabled schedule should not fire, got %d", len(queue.reqs))
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var last *domain.Schedule
	for i := 0; i < 3; i++ {
		sched, err := NewSchedule(Params{CronExpr: "0 * * * *"}, base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := store.Create(ctx, sched); err != nil {
			t.Fatalf("create: %v", err)
		}
		last = sched
	}

	if err := store.Create(ctx, last); !errors.Is(err, repo.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	list, _ := store.List(ctx, repo.ScheduleFilter{Limit: 2})
	if len(list) != 2 || list[0].ID != last.ID {
		t.Errorf("expected newest first with limit 2, got %d items", len(list))
	}

	list, _ = store.List(ctx, repo.ScheduleFilter{Offset: 5})
	if len(list) != 0 {
		t.Errorf("expected empty page, got %d", len(list))
	}

	if err := store.Delete(ctx, last.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, last.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Update(ctx, last); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetEnabled_RecomputesNextDue(t *testing.T) {
	created := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	s := New(Config{Store: store, Features: newFeatures(t), Queue: &fakeQueue{}, Now: fixedNow(created)})

	sched, err := s.Create(context.Background(), Params{CronExpr: "0 * * * *"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.SetEnabled(context.Background(), sched.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	// Включаем спустя сутки: срабатывание не должно быть в прошлом
	later := created.Add(24 * time.Hour).Add(10 * time.Minute)
	s.now = fixedNow(later)

	got, err := s.SetEnabled(context.Background(), sched.ID, true)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	want := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	if !got.Enabled || got.NextDueAt == nil || !got.NextDueAt.Equal(want) {
		t.Errorf("expected enabled with next due %s, got %+v", want, got)
	}

	if _, err := s.SetEnabled(context.Background(), uuid.New(), true); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
