package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/logsink"
)

// Feature DTOs

// CreateFeatureRequest — запрос на добавление feature.
// ID необязателен; если пустой, генерируется UUID.
type CreateFeatureRequest struct {
	ID        string `json:"id,omitempty"`
	Content   string `json:"content"`
	StepsCode string `json:"steps_code,omitempty"`
}

// FeatureResponse — ответ с feature.
type FeatureResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Content   string    `json:"content"`
	StepsCode string    `json:"steps_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeatureFromDomain конвертирует domain.Feature в FeatureResponse.
func FeatureFromDomain(f domain.Feature) FeatureResponse {
	return FeatureResponse{
		ID:        f.ID,
		Title:     f.Title,
		Tags:      f.Tags(),
		Content:   f.Content,
		StepsCode: f.StepsCode,
		CreatedAt: f.CreatedAt,
	}
}

// RunFeatureRequest — прямой запуск feature в обход очереди.
type RunFeatureRequest struct {
	Tags   []string `json:"tags,omitempty"`
	DryRun bool     `json:"dry_run,omitempty"`
}

// RunStartedResponse — результат прямого запуска.
// Started == false, если слот был занят и заявка отброшена.
type RunStartedResponse struct {
	Started   bool       `json:"started"`
	RequestID *uuid.UUID `json:"request_id,omitempty"`
}

// Environment DTOs

// CreateEnvironmentRequest — запрос на создание окружения.
type CreateEnvironmentRequest struct {
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	Variables []domain.EnvVar `json:"variables,omitempty"`
}

// SetVariableRequest — значение переменной окружения.
type SetVariableRequest struct {
	Value string `json:"value"`
}

// VariableResponse — переменная в том виде, в каком она видна в логе.
type VariableResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// EnvironmentResponse — ответ с окружением. Чувствительные значения маскируются.
type EnvironmentResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	URL       string             `json:"url"`
	Active    bool               `json:"active"`
	Variables []VariableResponse `json:"variables"`
}

// EnvironmentFromDomain конвертирует domain.Environment в EnvironmentResponse.
func EnvironmentFromDomain(e domain.Environment) EnvironmentResponse {
	vars := make([]VariableResponse, len(e.Variables))
	for i, v := range e.Variables {
		vars[i] = VariableResponse{
			Key:       v.Key,
			Value:     v.DisplayValue(),
			Sensitive: domain.IsSensitiveKey(v.Key),
		}
	}
	return EnvironmentResponse{
		ID:        e.ID,
		Name:      e.Name,
		URL:       e.URL,
		Active:    e.Active,
		Variables: vars,
	}
}

// Config DTOs

// UpdateConfigRequest — частичное обновление настроек выполнения.
type UpdateConfigRequest struct {
	Mode          *domain.ExecutionMode   `json:"mode,omitempty"`
	Method        *domain.ExecutionMethod `json:"execution_method,omitempty"`
	BackendURL    *string                 `json:"backend_url,omitempty"`
	ContainerName *string                 `json:"container_name,omitempty"`
}

// Apply накладывает изменения на текущие настройки.
func (r UpdateConfigRequest) Apply(cfg domain.ExecutionConfig) domain.ExecutionConfig {
	if r.Mode != nil {
		cfg.Mode = *r.Mode
	}
	if r.Method != nil {
		cfg.Method = *r.Method
	}
	if r.BackendURL != nil {
		cfg.BackendURL = *r.BackendURL
	}
	if r.ContainerName != nil {
		cfg.ContainerName = *r.ContainerName
	}
	return cfg
}

// Queue DTOs

// EnqueueRequest — постановка features в очередь.
//
// Если FeatureIDs задан, ставятся они в указанном порядке.
// Иначе ставятся features с тегом Tag (All — все features), от старых к новым.
type EnqueueRequest struct {
	FeatureIDs []string `json:"feature_ids,omitempty"`
	Tag        string   `json:"tag,omitempty"`
	All        bool     `json:"all,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	DryRun     bool     `json:"dry_run,omitempty"`
}

// EnqueueResponse — результат постановки.
type EnqueueResponse struct {
	Enqueued   int         `json:"enqueued"`
	RequestIDs []uuid.UUID `json:"request_ids"`
}

// QueueResponse — снимок очереди.
type QueueResponse struct {
	Busy    bool                `json:"busy"`
	Active  *domain.RunRequest  `json:"active,omitempty"`
	Pending []domain.RunRequest `json:"pending"`
}

// CancelResponse — результат отмены очереди.
type CancelResponse struct {
	Discarded int `json:"discarded"`
}

// Run DTOs

// RunRecordResponse — запись журнала.
type RunRecordResponse struct {
	ID           uuid.UUID        `json:"id"`
	Origin       domain.Origin    `json:"origin"`
	FeatureID    string           `json:"feature_id"`
	FeatureTitle string           `json:"feature_title"`
	Status       domain.RunStatus `json:"status"`
	DurationMs   int64            `json:"duration_ms"`
	Screenshots  []string         `json:"screenshots,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// RunRecordFromDomain конвертирует domain.RunRecord в RunRecordResponse.
func RunRecordFromDomain(r domain.RunRecord) RunRecordResponse {
	return RunRecordResponse{
		ID:           r.ID,
		Origin:       r.Origin,
		FeatureID:    r.FeatureID,
		FeatureTitle: r.FeatureTitle,
		Status:       r.Status,
		DurationMs:   r.Duration.Milliseconds(),
		Screenshots:  r.Screenshots,
		Timestamp:    r.Timestamp,
	}
}

// Logs DTOs

// LogsResponse — строки лога после since.
type LogsResponse struct {
	Lines   []logsink.Line `json:"lines"`
	LastSeq uint64         `json:"last_seq"`
}

// Command DTOs

// CommandRequest — команда на естественном языке.
type CommandRequest struct {
	Text string `json:"text"`
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name     string `json:"name"`
	CronExpr string `json:"cron_expr"`
	Tag      string `json:"tag,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// SetEnabledRequest — включение/выключение schedule.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}
