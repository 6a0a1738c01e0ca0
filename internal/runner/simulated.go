package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shaiso/Stagehand/internal/domain"
)

// finishDelay — пауза между последней строкой сценария и завершением.
const finishDelay = 500 * time.Millisecond

const screenshotMarker = "Screenshot saved:"

// ScriptStep — строка сценария и момент её появления от начала запуска.
type ScriptStep struct {
	At   time.Duration
	Line string
}

// Script — заранее заданный сценарий simulated-запуска.
type Script struct {
	Name     string
	Steps    []ScriptStep
	Duration time.Duration // длительность, попадающая в журнал
}

// Screenshots возвращает имена скриншотов, упомянутых в сценарии.
func (s Script) Screenshots() []string {
	var shots []string
	for _, step := range s.Steps {
		if _, name, ok := strings.Cut(step.Line, screenshotMarker); ok {
			shots = append(shots, strings.TrimSpace(name))
		}
	}
	return shots
}

// IsLoginFeature проверяет, проигрывается ли для feature сценарий входа.
func IsLoginFeature(f domain.Feature) bool {
	return f.Title == "User Login" || f.ID == "default-1"
}

// SelectScript выбирает сценарий для feature.
func SelectScript(f domain.Feature, env domain.Environment) Script {
	if IsLoginFeature(f) {
		return loginScript(f, env)
	}
	return genericScript(f)
}

func loginScript(f domain.Feature, env domain.Environment) Script {
	return Script{
		Name:     "login",
		Duration: 4200 * time.Millisecond,
		Steps: []ScriptStep{
			{800 * time.Millisecond, fmt.Sprintf(`> docker-compose exec playwright cucumber-js --tags "@%s"`, f.ID)},
			{1500 * time.Millisecond, "Found 1 feature(s)..."},
			{2000 * time.Millisecond, "Running: " + f.Title},
			{2500 * time.Millisecond, "> Given I verify the browser is open and loaded"},
			{2800 * time.Millisecond, "  🚀 Launching browser and navigating to: " + env.URL},
			{3500 * time.Millisecond, "  📸 Screenshot saved: 1-landing-page.png"},
			{3800 * time.Millisecond, fmt.Sprintf("  ✅ Browser Validated | URL: %s/login", env.URL)},
			{3800 * time.Millisecond, "  📑 Page Title: Sign in to your account"},
			{4200 * time.Millisecond, "> When I perform the secure login sequence"},
			{4500 * time.Millisecond, "  ⌨️ Filling credentials..."},
			{5500 * time.Millisecond, "  📸 Screenshot saved: 2-dashboard-signed-in.png"},
			{5800 * time.Millisecond, "> Then I should be fully authenticated"},
			{6000 * time.Millisecond, "  ✅ Dashboard loaded successfully"},
			{6200 * time.Millisecond, "1 scenario (1 passed)"},
			{6500 * time.Millisecond, "Done in 4.2s."},
		},
	}
}

func genericScript(f domain.Feature) Script {
	return Script{
		Name:     "generic",
		Duration: 2500 * time.Millisecond,
		Steps: []ScriptStep{
			{800 * time.Millisecond, fmt.Sprintf(`> docker-compose exec playwright cucumber-js --tags "@%s"`, f.ID)},
			{1500 * time.Millisecond, "Found 1 feature(s)..."},
			{2000 * time.Millisecond, "Running: " + f.Title},
			{2500 * time.Millisecond, "> Given precondition steps are met"},
			{2800 * time.Millisecond, "  🌐 Navigate and setup state"},
			{3500 * time.Millisecond, "> When actions are performed"},
			{3800 * time.Millisecond, "  ⚡ Executing steps..."},
			{4500 * time.Millisecond, "> Then assertions should pass"},
			{4800 * time.Millisecond, "  ✅ All checks passed"},
			{5000 * time.Millisecond, "1 scenario (1 passed)"},
			{5200 * time.Millisecond, "Done in 2.5s."},
		},
	}
}

// SleepFunc ждёт d или отмены ctx.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SimulatedConfig — конфигурация SimulatedDriver.
type SimulatedConfig struct {
	// Speed — множитель скорости проигрывания (2 — вдвое быстрее). Default: 1.
	Speed float64

	// Sleep — функция ожидания. В тестах подменяется на мгновенную.
	Sleep SleepFunc
}

// SimulatedDriver проигрывает сценарий по таймингам без реального запуска.
//
// Результат всегда passed с фиксированной длительностью сценария.
// Отмена ctx прерывает проигрывание с ошибкой.
type SimulatedDriver struct {
	speed float64
	sleep SleepFunc
}

// NewSimulatedDriver создаёт SimulatedDriver.
func NewSimulatedDriver(cfg SimulatedConfig) *SimulatedDriver {
	speed := cfg.Speed
	if speed <= 0 {
		speed = 1
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = contextSleep
	}

	return &SimulatedDriver{speed: speed, sleep: sleep}
}

// Execute проигрывает сценарий feature.
func (d *SimulatedDriver) Execute(ctx context.Context, exec Execution) (Outcome, error) {
	script := SelectScript(exec.Request.Feature, exec.Environment)

	var elapsed time.Duration
	for _, step := range script.Steps {
		if err := d.wait(ctx, step.At-elapsed); err != nil {
			return Outcome{}, err
		}
		elapsed = step.At
		exec.Emit(step.Line)
	}

	if err := d.wait(ctx, finishDelay); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Status:      domain.RunStatusPassed,
		Duration:    script.Duration,
		Screenshots: script.Screenshots(),
	}, nil
}

func (d *SimulatedDriver) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	return d.sleep(ctx, time.Duration(float64(delay)/d.speed))
}

// contextSleep — ожидание с поддержкой отмены.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
