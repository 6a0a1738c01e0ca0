package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Stagehand/internal/backend"
	"github.com/shaiso/Stagehand/internal/domain"
)

// ConfigSource отдаёт текущие настройки выполнения (адрес сервиса).
type ConfigSource interface {
	Get() domain.ExecutionConfig
}

// Bundle описывает, где лежат артефакты запуска.
type Bundle struct {
	RunID    string        `json:"run_id"`
	Origin   domain.Origin `json:"origin"`
	Filename string        `json:"filename"`

	// URL — адрес во внешнем сервисе (только real).
	URL string `json:"url,omitempty"`

	// Local — артефакт формируется локально, без сети (только simulated).
	Local bool `json:"local"`
}

// File — открытый артефакт. Body нужно закрыть.
type File struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string

	// Disposition — Content-Disposition от сервиса, если он его прислал.
	Disposition string
}

// Resolver находит артефакты запуска по его Origin.
//
// simulated — текстовый отчёт собирается из записи журнала;
// real — артефакты запрашиваются у сервиса по /api/artifacts/{id}.
// Кэширования и повторов нет.
type Resolver struct {
	config     ConfigSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Config — конфигурация Resolver.
type Config struct {
	Settings   ConfigSource
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New создаёт Resolver.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Resolver{
		config:     cfg.Settings,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Resolve описывает артефакты без их загрузки.
func (r *Resolver) Resolve(rec domain.RunRecord) (*Bundle, error) {
	id := rec.ID.String()

	switch rec.Origin {
	case domain.OriginSimulated:
		return &Bundle{
			RunID:    id,
			Origin:   rec.Origin,
			Filename: ReportFilename(id),
			Local:    true,
		}, nil

	case domain.OriginReal:
		return &Bundle{
			RunID:    id,
			Origin:   rec.Origin,
			Filename: fmt.Sprintf("run-%s-artifacts.zip", id),
			URL:      r.client().ArtifactURL(id),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrigin, rec.Origin)
	}
}

// Open возвращает содержимое артефактов.
func (r *Resolver) Open(ctx context.Context, rec domain.RunRecord) (*File, error) {
	bundle, err := r.Resolve(rec)
	if err != nil {
		return nil, err
	}

	if bundle.Local {
		return &File{
			Body:        io.NopCloser(bytes.NewReader(Report(rec))),
			Filename:    bundle.Filename,
			ContentType: "text/plain; charset=utf-8",
		}, nil
	}

	art, err := r.client().FetchArtifact(ctx, bundle.RunID)
	if err != nil {
		r.logger.Warn("artifact fetch failed", "run_id", bundle.RunID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	contentType := art.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &File{
		Body:        art.Body,
		Filename:    bundle.Filename,
		ContentType: contentType,
		Disposition: art.ContentDisposition,
	}, nil
}

func (r *Resolver) client() *backend.Client {
	baseURL := domain.DefaultExecutionConfig().BackendURL
	if r.config != nil {
		baseURL = r.config.Get().BackendURL
	}
	return backend.New(baseURL, r.httpClient)
}

// ReportFilename — имя файла отчёта simulated-запуска.
func ReportFilename(runID string) string {
	return fmt.Sprintf("run-%s-report.txt", runID)
}

// Report формирует текстовый отчёт по записи журнала.
func Report(rec domain.RunRecord) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Run report\n")
	fmt.Fprintf(&b, "==========\n")
	fmt.Fprintf(&b, "Run ID:    %s\n", rec.ID)
	fmt.Fprintf(&b, "Feature:   %s (%s)\n", rec.FeatureTitle, rec.FeatureID)
	fmt.Fprintf(&b, "Origin:    %s\n", rec.Origin)
	fmt.Fprintf(&b, "Status:    %s\n", strings.ToUpper(string(rec.Status)))
	fmt.Fprintf(&b, "Duration:  %s\n", rec.Duration)
	fmt.Fprintf(&b, "Timestamp: %s\n", rec.Timestamp.UTC().Format(time.RFC3339))

	if len(rec.Screenshots) > 0 {
		fmt.Fprintf(&b, "\nScreenshots:\n")
		for _, s := range rec.Screenshots {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}

	return []byte(b.String())
}
