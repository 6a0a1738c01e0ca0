package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHealthTimeout = 5 * time.Second
	maxErrorBody         = 200
)

// RunPayload — тело запроса POST /api/run.
type RunPayload struct {
	FeatureTitle  string   `json:"featureTitle"`
	FeatureCode   string   `json:"featureCode"`
	StepsCode     string   `json:"stepsCode"`
	Tags          []string `json:"tags"`
	ExecutionMode string   `json:"executionMode"` // host | docker
	ContainerName string   `json:"containerName"`
}

// Health — ответ GET /health.
type Health struct {
	Status   string `json:"status"`
	Engine   string `json:"engine,omitempty"`
	Mode     string `json:"mode"`
	TestsDir string `json:"testsDir,omitempty"`
}

// InsideContainer возвращает true, если сервис работает внутри контейнера.
func (h Health) InsideContainer() bool {
	return h.Mode == "inside-container"
}

// Artifact — файл артефактов, полученный от сервиса.
// Body нужно закрыть после чтения.
type Artifact struct {
	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
}

// Client — HTTP-клиент внешнего сервиса выполнения.
//
// Сервис запускает Playwright (на хосте или через docker exec) и
// отдаёт вывод процесса потоком text/plain.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New создаёт клиент для сервиса по адресу baseURL.
// Если httpClient == nil, используется клиент без общего таймаута:
// поток выполнения может идти долго, его ограничивает ctx.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL возвращает адрес сервиса.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Run запускает выполнение и возвращает поток вывода.
//
// Ошибка возвращается, если запрос не удался, статус не 2xx
// или у ответа нет тела. Вызывающий обязан закрыть поток.
func (c *Client) Run(ctx context.Context, payload RunPayload) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/run", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, ErrNoStream
	}

	return resp.Body, nil
}

// ArtifactURL возвращает адрес артефактов запуска.
func (c *Client) ArtifactURL(runID string) string {
	return c.baseURL + "/api/artifacts/" + url.PathEscape(runID)
}

// FetchArtifact скачивает артефакты запуска.
func (c *Client) FetchArtifact(ctx context.Context, runID string) (*Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ArtifactURL(runID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return &Artifact{
		Body:               resp.Body,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}, nil
}

// ContainerLogs открывает поток логов контейнера (docker logs -f).
func (c *Client) ContainerLogs(ctx context.Context, container string) (io.ReadCloser, error) {
	if container == "" {
		return nil, fmt.Errorf("%w: container name is required", ErrRequest)
	}

	u := c.baseURL + "/api/logs/stream?" + url.Values{"container": {container}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// Health проверяет доступность сервиса.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: decode health: %v", ErrRequest, err)
	}
	return &h, nil
}

// checkStatus превращает не-2xx ответ в ошибку ErrStatus.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(msg))
	if text == "" {
		return fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}
	return fmt.Errorf("%w: HTTP %d: %s", ErrStatus, resp.StatusCode, text)
}
