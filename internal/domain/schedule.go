package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule периодически ставит в очередь features с тегом Tag
// (все features, если Tag пуст).
type Schedule struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`

	// CronExpr — стандартное выражение из пяти полей: "0 9 * * 1-5".
	CronExpr string `json:"cron_expr"`

	Tag      string `json:"tag,omitempty"`
	DryRun   bool   `json:"dry_run"`
	Timezone string `json:"timezone"` // IANA, default "UTC"
	Enabled  bool   `json:"enabled"`

	NextDueAt *time.Time `json:"next_due_at,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastEnqueued — сколько заявок поставило последнее срабатывание.
	LastEnqueued int `json:"last_enqueued"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDue — включён и NextDueAt наступил.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Enabled && s.NextDueAt != nil && !now.Before(*s.NextDueAt)
}

// RecordFire отмечает срабатывание в момент at.
func (s *Schedule) RecordFire(at time.Time, enqueued int, nextDue time.Time) {
	s.LastRunAt = &at
	s.LastEnqueued = enqueued
	s.NextDueAt = &nextDue
	s.UpdatedAt = at
}
