package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Stagehand/internal/domain"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время срабатывания после from.
// Учитывает timezone schedule; результат в UTC.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}

	schedule, err := cronParser.Parse(sched.CronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
	}

	return schedule.Next(from.In(loc)).UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("%w: cron expression %q: %v", ErrInvalidSchedule, cronExpr, err)
	}
	return nil
}

// Params — параметры нового schedule.
type Params struct {
	Name     string
	CronExpr string
	Tag      string
	DryRun   bool
	Timezone string
}

// NewSchedule проверяет параметры и создаёт включённый schedule
// с вычисленным NextDueAt.
func NewSchedule(params Params, now time.Time) (*domain.Schedule, error) {
	cronExpr := strings.TrimSpace(params.CronExpr)
	if cronExpr == "" {
		return nil, fmt.Errorf("%w: cron_expr is required", ErrInvalidSchedule)
	}
	if err := ValidateCronExpr(cronExpr); err != nil {
		return nil, err
	}

	tz := params.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("%w: timezone %q", ErrInvalidSchedule, tz)
	}

	tag := domain.NormalizeTag(params.Tag)

	sched := &domain.Schedule{
		ID:        uuid.New(),
		Name:      params.Name,
		CronExpr:  cronExpr,
		Tag:       tag,
		DryRun:    params.DryRun,
		Timezone:  tz,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	next, err := CalculateNextDue(sched, now)
	if err != nil {
		return nil, err
	}
	sched.NextDueAt = &next

	return sched, nil
}
