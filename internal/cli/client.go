package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FeatureResponse — feature из API.
type FeatureResponse struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Content   string   `json:"content"`
	StepsCode string   `json:"steps_code,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// FileResponse — файл кода шагов.
type FileResponse struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RunStartedResponse — результат прямого запуска.
type RunStartedResponse struct {
	Started   bool   `json:"started"`
	RequestID string `json:"request_id,omitempty"`
}

// VariableResponse — переменная окружения (чувствительные значения замаскированы).
type VariableResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// EnvironmentResponse — окружение из API.
type EnvironmentResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	URL       string             `json:"url"`
	Active    bool               `json:"active"`
	Variables []VariableResponse `json:"variables"`
}

// ExecutionConfig — настройки выполнения.
type ExecutionConfig struct {
	Mode          string `json:"mode"`
	Method        string `json:"execution_method"`
	BackendURL    string `json:"backend_url"`
	ContainerName string `json:"container_name"`
}

// RunRequestResponse — заявка в очереди.
type RunRequestResponse struct {
	ID      string `json:"id"`
	Feature struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"feature"`
	DryRun     bool   `json:"dry_run"`
	State      string `json:"state"`
	EnqueuedAt string `json:"enqueued_at"`
	StartedAt  string `json:"started_at,omitempty"`
}

// QueueResponse — снимок очереди.
type QueueResponse struct {
	Busy    bool                 `json:"busy"`
	Active  *RunRequestResponse  `json:"active,omitempty"`
	Pending []RunRequestResponse `json:"pending"`
}

// EnqueueResponse — результат постановки в очередь.
type EnqueueResponse struct {
	Enqueued   int      `json:"enqueued"`
	RequestIDs []string `json:"request_ids"`
}

// RunRecordResponse — запись журнала.
type RunRecordResponse struct {
	ID           string   `json:"id"`
	Origin       string   `json:"origin"`
	FeatureID    string   `json:"feature_id"`
	FeatureTitle string   `json:"feature_title"`
	Status       string   `json:"status"`
	DurationMs   int64    `json:"duration_ms"`
	Screenshots  []string `json:"screenshots,omitempty"`
	Timestamp    string   `json:"timestamp"`
}

// ArtifactBundle — где лежат артефакты запуска.
type ArtifactBundle struct {
	RunID    string `json:"run_id"`
	Origin   string `json:"origin"`
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Local    bool   `json:"local"`
}

// LogLine — строка лога.
type LogLine struct {
	Seq   uint64 `json:"seq"`
	RunID string `json:"run_id"`
	Text  string `json:"text"`
	At    string `json:"at"`
}

// LogsResponse — строки лога и номер последней.
type LogsResponse struct {
	Lines   []LogLine `json:"lines"`
	LastSeq uint64    `json:"last_seq"`
}

// CommandReply — ответ на команду.
type CommandReply struct {
	Reply     string `json:"reply"`
	FeatureID string `json:"feature_id,omitempty"`
	Started   bool   `json:"started"`
}

// BackendHealth — состояние сервиса выполнения.
type BackendHealth struct {
	URL             string `json:"url"`
	Status          string `json:"status"`
	Engine          string `json:"engine,omitempty"`
	Mode            string `json:"mode"`
	TestsDir        string `json:"tests_dir,omitempty"`
	InsideContainer bool   `json:"inside_container"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	CronExpr     string `json:"cron_expr"`
	Tag          string `json:"tag,omitempty"`
	DryRun       bool   `json:"dry_run"`
	Timezone     string `json:"timezone"`
	Enabled      bool   `json:"enabled"`
	NextDueAt    string `json:"next_due_at,omitempty"`
	LastRunAt    string `json:"last_run_at,omitempty"`
	LastEnqueued int    `json:"last_enqueued"`
	CreatedAt    string `json:"created_at"`
}

// --- Request types ---

// AddFeatureRequest — добавление feature.
type AddFeatureRequest struct {
	ID        string `json:"id,omitempty"`
	Content   string `json:"content"`
	StepsCode string `json:"steps_code,omitempty"`
}

// RunFeatureRequest — прямой запуск.
type RunFeatureRequest struct {
	Tags   []string `json:"tags,omitempty"`
	DryRun bool     `json:"dry_run,omitempty"`
}

// EnvVar — переменная окружения в запросе.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CreateEnvironmentRequest — создание окружения.
type CreateEnvironmentRequest struct {
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Variables []EnvVar `json:"variables,omitempty"`
}

// UpdateConfigRequest — частичное обновление настроек выполнения.
type UpdateConfigRequest struct {
	Mode          *string `json:"mode,omitempty"`
	Method        *string `json:"execution_method,omitempty"`
	BackendURL    *string `json:"backend_url,omitempty"`
	ContainerName *string `json:"container_name,omitempty"`
}

// EnqueueRequest — постановка в очередь.
type EnqueueRequest struct {
	FeatureIDs []string `json:"feature_ids,omitempty"`
	Tag        string   `json:"tag,omitempty"`
	All        bool     `json:"all,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	DryRun     bool     `json:"dry_run,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name     string `json:"name"`
	CronExpr string `json:"cron_expr"`
	Tag      string `json:"tag,omitempty"`
	DryRun   bool   `json:"dry_run,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Stagehand API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// streamClient — без общего таймаута, для потоков (логи контейнера, артефакты)
	streamClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// --- Features ---

// ListFeatures возвращает features, опционально с тегом.
func (c *Client) ListFeatures(tag string) ([]FeatureResponse, error) {
	params := url.Values{}
	if tag != "" {
		params.Set("tag", tag)
	}

	var features []FeatureResponse
	err := c.list("/api/v1/features", params, &features)
	return features, err
}

// AddFeature добавляет feature.
func (c *Client) AddFeature(req AddFeatureRequest) (*FeatureResponse, error) {
	var feature FeatureResponse
	err := c.post("/api/v1/features", req, &feature)
	return &feature, err
}

// GetFeature возвращает feature по ID.
func (c *Client) GetFeature(id string) (*FeatureResponse, error) {
	var feature FeatureResponse
	err := c.get("/api/v1/features/"+url.PathEscape(id), &feature)
	return &feature, err
}

// DeleteFeature удаляет feature.
func (c *Client) DeleteFeature(id string) error {
	return c.delete("/api/v1/features/" + url.PathEscape(id))
}

// ListFiles возвращает файлы кода шагов feature.
func (c *Client) ListFiles(id string) ([]FileResponse, error) {
	var files []FileResponse
	err := c.list("/api/v1/features/"+url.PathEscape(id)+"/files", nil, &files)
	return files, err
}

// ListTags возвращает все теги.
func (c *Client) ListTags() ([]string, error) {
	var tags []string
	err := c.list("/api/v1/tags", nil, &tags)
	return tags, err
}

// RunFeature запускает feature напрямую. Started == false, если слот занят.
func (c *Client) RunFeature(id string, req RunFeatureRequest) (*RunStartedResponse, error) {
	var started RunStartedResponse
	err := c.post("/api/v1/features/"+url.PathEscape(id)+"/run", req, &started)
	return &started, err
}

// --- Environments ---

// ListEnvironments возвращает окружения.
func (c *Client) ListEnvironments() ([]EnvironmentResponse, error) {
	var envs []EnvironmentResponse
	err := c.list("/api/v1/environments", nil, &envs)
	return envs, err
}

// CreateEnvironment создаёт окружение.
func (c *Client) CreateEnvironment(req CreateEnvironmentRequest) (*EnvironmentResponse, error) {
	var env EnvironmentResponse
	err := c.post("/api/v1/environments", req, &env)
	return &env, err
}

// DeleteEnvironment удаляет окружение.
func (c *Client) DeleteEnvironment(id string) error {
	return c.delete("/api/v1/environments/" + url.PathEscape(id))
}

// ActivateEnvironment делает окружение активным.
func (c *Client) ActivateEnvironment(id string) (*EnvironmentResponse, error) {
	var env EnvironmentResponse
	err := c.post("/api/v1/environments/"+url.PathEscape(id)+"/activate", nil, &env)
	return &env, err
}

// SetVariable задаёт переменную окружения.
func (c *Client) SetVariable(id, key, value string) (*EnvironmentResponse, error) {
	var env EnvironmentResponse
	body := map[string]string{"value": value}
	err := c.put("/api/v1/environments/"+url.PathEscape(id)+"/variables/"+url.PathEscape(key), body, &env)
	return &env, err
}

// DeleteVariable удаляет переменную окружения.
func (c *Client) DeleteVariable(id, key string) (*EnvironmentResponse, error) {
	var env EnvironmentResponse
	err := c.doData(http.MethodDelete, "/api/v1/environments/"+url.PathEscape(id)+"/variables/"+url.PathEscape(key), nil, &env)
	return &env, err
}

// --- Config ---

// GetConfig возвращает настройки выполнения.
func (c *Client) GetConfig() (*ExecutionConfig, error) {
	var cfg ExecutionConfig
	err := c.get("/api/v1/config", &cfg)
	return &cfg, err
}

// UpdateConfig меняет настройки выполнения.
func (c *Client) UpdateConfig(req UpdateConfigRequest) (*ExecutionConfig, error) {
	var cfg ExecutionConfig
	err := c.put("/api/v1/config", req, &cfg)
	return &cfg, err
}

// --- Queue ---

// GetQueue возвращает снимок очереди.
func (c *Client) GetQueue() (*QueueResponse, error) {
	var queue QueueResponse
	err := c.get("/api/v1/queue", &queue)
	return &queue, err
}

// Enqueue ставит features в очередь.
func (c *Client) Enqueue(req EnqueueRequest) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	err := c.post("/api/v1/queue", req, &resp)
	return &resp, err
}

// CancelQueue снимает ожидающие заявки и возвращает их количество.
func (c *Client) CancelQueue() (int, error) {
	var resp struct {
		Discarded int `json:"discarded"`
	}
	err := c.doData(http.MethodDelete, "/api/v1/queue", nil, &resp)
	return resp.Discarded, err
}

// --- Runs ---

// ListRuns возвращает журнал и его полный размер.
func (c *Client) ListRuns(limit, offset int) ([]RunRecordResponse, int, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	var runs []RunRecordResponse
	total, err := c.listTotal("/api/v1/runs", params, &runs)
	return runs, total, err
}

// GetRun возвращает запись журнала по ID.
func (c *Client) GetRun(id string) (*RunRecordResponse, error) {
	var run RunRecordResponse
	err := c.get("/api/v1/runs/"+url.PathEscape(id), &run)
	return &run, err
}

// GetArtifacts описывает артефакты запуска.
func (c *Client) GetArtifacts(id string) (*ArtifactBundle, error) {
	var bundle ArtifactBundle
	err := c.get("/api/v1/runs/"+url.PathEscape(id)+"/artifacts", &bundle)
	return &bundle, err
}

// DownloadArtifacts пишет артефакты в w и возвращает имя файла из Content-Disposition.
func (c *Client) DownloadArtifacts(ctx context.Context, id string, w io.Writer) (string, error) {
	resp, err := c.stream(ctx, "/api/v1/runs/"+url.PathEscape(id)+"/artifacts/download")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return filename, fmt.Errorf("failed to read artifacts: %w", err)
	}
	return filename, nil
}

// --- Logs ---

// Logs возвращает строки лога после since.
func (c *Client) Logs(since uint64) (*LogsResponse, error) {
	var logs LogsResponse
	err := c.get("/api/v1/logs?since="+strconv.FormatUint(since, 10), &logs)
	return &logs, err
}

// FollowLogs читает лог через websocket и вызывает fn для каждой строки,
// пока не отменён ctx или сервер не закрыл соединение.
func (c *Client) FollowLogs(ctx context.Context, since uint64, fn func(LogLine)) error {
	wsURL, err := websocketURL(c.baseURL, "/api/v1/logs/ws?since="+strconv.FormatUint(since, 10))
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to log stream: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var line LogLine
		if err := conn.ReadJSON(&line); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("log stream: %w", err)
		}
		fn(line)
	}
}

// --- Command ---

// Ask отправляет команду на естественном языке.
func (c *Client) Ask(text string) (*CommandReply, error) {
	var reply CommandReply
	err := c.post("/api/v1/command", map[string]string{"text": text}, &reply)
	return &reply, err
}

// --- Backend ---

// BackendHealth проверяет сервис выполнения.
func (c *Client) BackendHealth() (*BackendHealth, error) {
	var health BackendHealth
	err := c.get("/api/v1/backend/health", &health)
	return &health, err
}

// ContainerLogs копирует поток логов контейнера в w до отмены ctx.
func (c *Client) ContainerLogs(ctx context.Context, name string, w io.Writer) error {
	resp, err := c.stream(ctx, "/api/v1/backend/containers/"+url.PathEscape(name)+"/logs")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil && ctx.Err() == nil {
		return fmt.Errorf("container log stream: %w", err)
	}
	return nil
}

// --- Schedules ---

// ListSchedules возвращает schedules. enabled == nil — все.
func (c *Client) ListSchedules(enabled *bool) ([]ScheduleResponse, error) {
	params := url.Values{}
	if enabled != nil {
		params.Set("enabled", strconv.FormatBool(*enabled))
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// SetScheduleEnabled включает или выключает schedule.
func (c *Client) SetScheduleEnabled(id string, enabled bool) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": enabled}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	_, err := c.listTotal(path, params, result)
	return err
}

func (c *Client) listTotal(path string, params url.Values, result any) (int, error) {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return 0, err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return lr.Total, json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// stream выполняет GET без общего таймаута; ответ проверен на ошибку.
func (c *Client) stream(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkError(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error.Code == "" {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}

// websocketURL переводит http(s)-адрес API в ws(s).
func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("api url must start with http:// or https://")
	}
	return u.String(), nil
}
