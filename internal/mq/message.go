package mq

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Stagehand/internal/domain"
)

// MessageType — тип сообщения, совпадает с routing key.
type MessageType string

const (
	MessageTypeRunRequested MessageType = "run.requested"
	MessageTypeRunStarted   MessageType = "run.started"
	MessageTypeRunFinished  MessageType = "run.finished"
)

// Message — конверт всех сообщений Stagehand.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// RunRequestedPayload — заявка на запуск от внешней системы.
// Если FeatureIDs пуст, берутся все features с тегом Tag (все, если Tag пуст).
type RunRequestedPayload struct {
	FeatureIDs []string `json:"feature_ids,omitempty"`
	Tag        string   `json:"tag,omitempty"`
	DryRun     bool     `json:"dry_run"`
}

// RunStartedPayload — запуск занял слот.
type RunStartedPayload struct {
	RunID        uuid.UUID            `json:"run_id"`
	FeatureID    string               `json:"feature_id"`
	FeatureTitle string               `json:"feature_title"`
	Mode         domain.ExecutionMode `json:"mode"`
	DryRun       bool                 `json:"dry_run"`
}

// RunFinishedPayload — запуск завершён. Record == nil для dry run.
type RunFinishedPayload struct {
	RunID     uuid.UUID           `json:"run_id"`
	FeatureID string              `json:"feature_id"`
	State     domain.RequestState `json:"state"`
	Record    *domain.RunRecord   `json:"record,omitempty"`
}
