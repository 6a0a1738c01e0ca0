package runner

import (
	"context"
	"net/http"
	"time"

	"github.com/shaiso/Stagehand/internal/backend"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/telemetry"
)

// RealConfig — конфигурация RealDriver.
type RealConfig struct {
	// HTTPClient — клиент для запросов к сервису выполнения.
	HTTPClient *http.Client

	// Now — источник времени для замера длительности. Default: time.Now.
	Now func() time.Time
}

// RealDriver запускает feature через внешний сервис выполнения
// и переносит его вывод в лог построчно.
type RealDriver struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewRealDriver создаёт RealDriver.
func NewRealDriver(cfg RealConfig) *RealDriver {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RealDriver{httpClient: cfg.HTTPClient, now: now}
}

// Execute отправляет feature в сервис и читает поток до конца.
//
// Завершение потока — passed. Любая ошибка (транспорт, статус,
// отсутствие тела, обрыв чтения) возвращается координатору.
func (d *RealDriver) Execute(ctx context.Context, exec Execution) (Outcome, error) {
	client := backend.New(exec.Config.BackendURL, d.httpClient)

	payload := backend.RunPayload{
		FeatureTitle:  exec.Request.Feature.Title,
		FeatureCode:   exec.Request.Feature.Content,
		StepsCode:     exec.Request.Feature.StepsCode,
		Tags:          exec.Request.Tags,
		ExecutionMode: string(exec.Config.Method),
		ContainerName: exec.Config.ContainerName,
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}

	logger := telemetry.FromContext(ctx)
	start := d.now()

	stream, err := client.Run(ctx, payload)
	if err != nil {
		return Outcome{}, err
	}
	defer stream.Close()

	logger.Debug("runner backend accepted feature", "backend_url", exec.Config.BackendURL, "method", exec.Config.Method)

	lines := 0
	emit := func(line string) {
		lines++
		exec.Emit(line)
	}
	if err := backend.ReadLines(stream, emit); err != nil {
		return Outcome{}, err
	}

	elapsed := d.now().Sub(start)
	logger.Debug("runner backend stream finished", "lines", lines, "elapsed", elapsed)

	return Outcome{
		Status:   domain.RunStatusPassed,
		Duration: elapsed,
	}, nil
}
