package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunRequest — заявка на выполнение одного feature.
//
// Создаётся при постановке в очередь (API, CLI, scheduler, RabbitMQ)
// или при прямом запуске. Живёт только в памяти координатора.
type RunRequest struct {
	// ID — уникальный идентификатор заявки.
	ID uuid.UUID `json:"id"`

	// Feature — снимок feature на момент постановки в очередь.
	Feature Feature `json:"feature"`

	// Tags — теги для фильтрации сценариев при реальном запуске.
	Tags []string `json:"tags,omitempty"`

	// DryRun — только проверить план выполнения, без запуска.
	DryRun bool `json:"dry_run"`

	// State — текущее состояние заявки.
	State RequestState `json:"state"`

	// EnqueuedAt — время постановки в очередь.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// StartedAt — время занятия слота.
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// NewRunRequest создаёт заявку в состоянии QUEUED.
func NewRunRequest(feature Feature, tags []string, dryRun bool) *RunRequest {
	return &RunRequest{
		ID:         uuid.New(),
		Feature:    feature,
		Tags:       NormalizeTags(tags),
		DryRun:     dryRun,
		State:      RequestQueued,
		EnqueuedAt: time.Now(),
	}
}

// MarkRunning переводит заявку в RUNNING.
func (r *RunRequest) MarkRunning() {
	now := time.Now()
	r.State = RequestRunning
	r.StartedAt = &now
}

// MarkFinished переводит заявку в финальное состояние по итогу выполнения.
func (r *RunRequest) MarkFinished(status RunStatus) {
	if status == RunStatusPassed {
		r.State = RequestCompleted
		return
	}
	r.State = RequestFailed
}

// MarkDiscarded снимает заявку с очереди.
func (r *RunRequest) MarkDiscarded() {
	r.State = RequestDiscarded
}

// RunRecord — запись журнала о завершённом выполнении.
//
// Создаётся ровно один раз на каждое завершённое выполнение
// (успешное или нет) и больше не изменяется. Dry run записей не создаёт.
type RunRecord struct {
	// ID — идентификатор выполнения. Совпадает с ID заявки.
	ID uuid.UUID `json:"id"`

	// Origin — simulated или real.
	Origin Origin `json:"origin"`

	// FeatureID и FeatureTitle — что выполнялось.
	FeatureID    string `json:"feature_id"`
	FeatureTitle string `json:"feature_title"`

	// Status — passed или failed.
	Status RunStatus `json:"status"`

	// Duration — длительность выполнения.
	// Для simulated — фиксированное значение сценария,
	// для real — измеренное время, для ошибок — 0.
	Duration time.Duration `json:"duration"`

	// Screenshots — имена скриншотов, упомянутых в логе (только simulated).
	Screenshots []string `json:"screenshots,omitempty"`

	// Timestamp — время завершения.
	Timestamp time.Time `json:"timestamp"`
}

// Passed возвращает true для успешного выполнения.
func (r *RunRecord) Passed() bool {
	return r.Status == RunStatusPassed
}
