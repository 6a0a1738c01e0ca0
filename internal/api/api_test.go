package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shaiso/Stagehand/internal/command"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/library"
	"github.com/shaiso/Stagehand/internal/logsink"
	"github.com/shaiso/Stagehand/internal/runner"
	"github.com/shaiso/Stagehand/internal/scheduler"
)

// --- Helpers ---

type fixture struct {
	handler  *Handler
	mux      *http.ServeMux
	coord    *runner.Coordinator
	features *library.Features
	envs     *library.Environments
}

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newFixture(t *testing.T, drivers *runner.Registry, mutate func(*Config)) *fixture {
	t.Helper()

	if drivers == nil {
		drivers = runner.NewDefaultRegistry(runner.SimulatedConfig{Sleep: instantSleep}, runner.RealConfig{})
	}

	coord := runner.New(runner.Config{Drivers: drivers})
	if err := coord.Start(context.Background()); err != nil {
		t.Fatalf("start coordinator: %v", err)
	}
	t.Cleanup(coord.Stop)

	features := library.NewFeatures()
	envs := library.NewEnvironments(domain.DefaultEnvironment())

	cfg := Config{
		Features:    features,
		Envs:        envs,
		Coordinator: coord,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	h := NewHandler(cfg)
	t.Cleanup(h.Close)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return &fixture{handler: h, mux: mux, coord: coord, features: features, envs: envs}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) addFeature(t *testing.T, id, content string) domain.Feature {
	t.Helper()
	feature, err := f.features.Add(context.Background(), domain.Feature{ID: id, Content: content})
	if err != nil {
		t.Fatalf("add feature: %v", err)
	}
	return *feature
}

func (f *fixture) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.coord.WaitIdle(ctx); err != nil {
		t.Fatalf("coordinator did not become idle: %v", err)
	}
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data  T   `json:"data"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return resp.Data
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

// blockingDriver держит слот занятым, пока не закрыт release.
type blockingDriver struct {
	release chan struct{}
}

func (d *blockingDriver) Execute(ctx context.Context, _ runner.Execution) (runner.Outcome, error) {
	select {
	case <-d.release:
	case <-ctx.Done():
		return runner.Outcome{}, ctx.Err()
	}
	return runner.Outcome{Status: domain.RunStatusPassed, Duration: time.Second}, nil
}

// --- Features ---

func TestFeatures_CRUD(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/features", CreateFeatureRequest{
		ID:        "login",
		Content:   "@smoke\nFeature: User Login\n  Scenario: sign in\n    Given I open the page\n",
		StepsCode: "// ====\n// 📁 tests/steps/login.ts\n// ====\nexport {}\n",
	})
	expectStatus(t, rec, http.StatusCreated)

	created := decodeData[FeatureResponse](t, rec)
	if created.Title != "User Login" {
		t.Errorf("expected title from Feature line, got %q", created.Title)
	}
	if len(created.Tags) != 1 || created.Tags[0] != "@smoke" {
		t.Errorf("expected [@smoke], got %v", created.Tags)
	}

	// Повторный ID
	rec = f.do(t, http.MethodPost, "/api/v1/features", CreateFeatureRequest{ID: "login", Content: "Feature: Other\n"})
	expectStatus(t, rec, http.StatusConflict)

	// Не Gherkin
	rec = f.do(t, http.MethodPost, "/api/v1/features", CreateFeatureRequest{Content: "just some text"})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = f.do(t, http.MethodGet, "/api/v1/features", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeData[[]FeatureResponse](t, rec); len(list) != 1 {
		t.Errorf("expected 1 feature, got %d", len(list))
	}

	rec = f.do(t, http.MethodGet, "/api/v1/features/login/files", nil)
	expectStatus(t, rec, http.StatusOK)
	files := decodeData[[]struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}](t, rec)
	if len(files) != 1 || files[0].Path != "tests/steps/login.ts" {
		t.Errorf("unexpected files %+v", files)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/tags", nil)
	expectStatus(t, rec, http.StatusOK)
	if tags := decodeData[[]string](t, rec); len(tags) != 1 || tags[0] != "@smoke" {
		t.Errorf("expected [@smoke], got %v", tags)
	}

	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/features/login", nil), http.StatusNoContent)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/features/login", nil), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/features/login", nil), http.StatusNotFound)
}

func TestFeatures_ListByTag(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.addFeature(t, "a", "@smoke\nFeature: A\n")
	f.addFeature(t, "b", "Feature: B\n")

	rec := f.do(t, http.MethodGet, "/api/v1/features?tag=@smoke", nil)
	expectStatus(t, rec, http.StatusOK)

	list := decodeData[[]FeatureResponse](t, rec)
	if len(list) != 1 || list[0].ID != "a" {
		t.Errorf("expected only feature a, got %+v", list)
	}
}

// --- Direct run ---

func TestRunFeature_IgnoredWhenBusy(t *testing.T) {
	driver := &blockingDriver{release: make(chan struct{})}
	registry := runner.NewRegistry()
	registry.Register(domain.ModeSimulated, driver)

	f := newFixture(t, registry, nil)
	f.addFeature(t, "a", "Feature: A\n")

	rec := f.do(t, http.MethodPost, "/api/v1/features/a/run", nil)
	expectStatus(t, rec, http.StatusAccepted)
	if started := decodeData[RunStartedResponse](t, rec); !started.Started || started.RequestID == nil {
		t.Errorf("expected started with request id, got %+v", started)
	}

	// Слот занят: заявка отбрасывается без ошибки
	rec = f.do(t, http.MethodPost, "/api/v1/features/a/run", RunFeatureRequest{DryRun: true})
	expectStatus(t, rec, http.StatusOK)
	if started := decodeData[RunStartedResponse](t, rec); started.Started {
		t.Error("second run should not start while slot is busy")
	}

	close(driver.release)
	f.waitIdle(t)

	if n := f.coord.Ledger().Len(); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}

	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/features/missing/run", nil), http.StatusNotFound)
}

// --- Queue and runs ---

func TestQueue_EnqueueRunsInOrder(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.addFeature(t, "default-1", "Feature: User Login\n")
	f.addFeature(t, "checkout", "Feature: Checkout\n")

	rec := f.do(t, http.MethodPost, "/api/v1/queue", EnqueueRequest{FeatureIDs: []string{"default-1", "checkout"}})
	expectStatus(t, rec, http.StatusAccepted)
	if resp := decodeData[EnqueueResponse](t, rec); resp.Enqueued != 2 || len(resp.RequestIDs) != 2 {
		t.Errorf("expected 2 enqueued, got %+v", resp)
	}

	f.waitIdle(t)

	rec = f.do(t, http.MethodGet, "/api/v1/runs", nil)
	expectStatus(t, rec, http.StatusOK)
	runs := decodeData[[]RunRecordResponse](t, rec)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// Журнал — от новых к старым
	if runs[0].FeatureTitle != "Checkout" || runs[1].FeatureTitle != "User Login" {
		t.Errorf("expected [Checkout, User Login], got [%s, %s]", runs[0].FeatureTitle, runs[1].FeatureTitle)
	}
	if runs[1].DurationMs != 4200 {
		t.Errorf("expected 4200ms for login, got %d", runs[1].DurationMs)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/runs?limit=1&offset=1", nil)
	if page := decodeData[[]RunRecordResponse](t, rec); len(page) != 1 || page[0].ID != runs[1].ID {
		t.Errorf("unexpected page %+v", page)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/runs/"+runs[0].ID.String(), nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeData[RunRecordResponse](t, rec); got.Status != domain.RunStatusPassed {
		t.Errorf("expected passed, got %s", got.Status)
	}
}

func TestQueue_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.addFeature(t, "a", "Feature: A\n")

	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/queue", EnqueueRequest{}), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/queue",
		EnqueueRequest{FeatureIDs: []string{"a", "missing"}}), http.StatusNotFound)

	// Ни одна заявка не должна попасть в очередь при ошибке
	f.waitIdle(t)
	if n := f.coord.Ledger().Len(); n != 0 {
		t.Errorf("expected no runs, got %d", n)
	}
}

func TestQueue_TagEnqueuesOldestFirst(t *testing.T) {
	driver := &blockingDriver{release: make(chan struct{})}
	registry := runner.NewRegistry()
	registry.Register(domain.ModeSimulated, driver)

	f := newFixture(t, registry, nil)
	f.addFeature(t, "first", "@smoke\nFeature: First\n")
	f.addFeature(t, "other", "Feature: Other\n")
	f.addFeature(t, "second", "@smoke\nFeature: Second\n")

	rec := f.do(t, http.MethodPost, "/api/v1/queue", EnqueueRequest{Tag: "@smoke"})
	expectStatus(t, rec, http.StatusAccepted)

	rec = f.do(t, http.MethodGet, "/api/v1/queue", nil)
	expectStatus(t, rec, http.StatusOK)
	queue := decodeData[QueueResponse](t, rec)
	if !queue.Busy || queue.Active == nil || queue.Active.Feature.ID != "first" {
		t.Fatalf("expected first to be running, got %+v", queue)
	}
	if len(queue.Pending) != 1 || queue.Pending[0].Feature.ID != "second" {
		t.Errorf("expected second pending, got %+v", queue.Pending)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/queue", nil)
	expectStatus(t, rec, http.StatusOK)
	if resp := decodeData[CancelResponse](t, rec); resp.Discarded != 1 {
		t.Errorf("expected 1 discarded, got %d", resp.Discarded)
	}

	close(driver.release)
	f.waitIdle(t)
	if n := f.coord.Ledger().Len(); n != 1 {
		t.Errorf("only the active run should finish, got %d records", n)
	}
}

func TestQueue_TagWithoutAt(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.addFeature(t, "first", "@smoke\nFeature: First\n")
	f.addFeature(t, "other", "Feature: Other\n")

	rec := f.do(t, http.MethodPost, "/api/v1/queue", EnqueueRequest{Tag: "smoke"})
	expectStatus(t, rec, http.StatusAccepted)
	if resp := decodeData[EnqueueResponse](t, rec); resp.Enqueued != 1 {
		t.Errorf("expected 1 enqueued for tag without @, got %+v", resp)
	}

	f.waitIdle(t)
	records := f.coord.Ledger().List(10, 0)
	if len(records) != 1 || records[0].FeatureID != "first" {
		t.Fatalf("expected one run of first, got %+v", records)
	}
}

func TestQueue_AllSkipsActiveFeature(t *testing.T) {
	driver := &blockingDriver{release: make(chan struct{})}
	registry := runner.NewRegistry()
	registry.Register(domain.ModeSimulated, driver)

	f := newFixture(t, registry, nil)
	a := f.addFeature(t, "a", "Feature: A\n")
	f.addFeature(t, "b", "Feature: B\n")

	if !f.coord.Run(domain.NewRunRequest(a, nil, false)) {
		t.Fatal("run should start")
	}

	rec := f.do(t, http.MethodPost, "/api/v1/queue", EnqueueRequest{All: true})
	expectStatus(t, rec, http.StatusAccepted)
	if resp := decodeData[EnqueueResponse](t, rec); resp.Enqueued != 1 {
		t.Errorf("expected only b enqueued, got %+v", resp)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/queue", nil)
	queue := decodeData[QueueResponse](t, rec)
	if len(queue.Pending) != 1 || queue.Pending[0].Feature.ID != "b" {
		t.Errorf("expected b pending, got %+v", queue.Pending)
	}

	close(driver.release)
	f.waitIdle(t)
	if n := f.coord.Ledger().Len(); n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}
}

func TestRuns_NotFound(t *testing.T) {
	f := newFixture(t, nil, nil)

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/runs/not-a-uuid", nil), http.StatusBadRequest)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/runs/"+uuid.NewString()+"/artifacts", nil), http.StatusNotFound)
}

// --- Artifacts ---

func TestArtifacts_Simulated(t *testing.T) {
	f := newFixture(t, nil, nil)
	feature := f.addFeature(t, "default-1", "Feature: User Login\n")

	if !f.coord.Run(domain.NewRunRequest(feature, nil, false)) {
		t.Fatal("run should start")
	}
	f.waitIdle(t)

	rec := f.coord.Ledger().List(1, 0)[0]

	resp := f.do(t, http.MethodGet, "/api/v1/runs/"+rec.ID.String()+"/artifacts", nil)
	expectStatus(t, resp, http.StatusOK)
	bundle := decodeData[struct {
		Origin domain.Origin `json:"origin"`
		Local  bool          `json:"local"`
	}](t, resp)
	if bundle.Origin != domain.OriginSimulated || !bundle.Local {
		t.Errorf("expected local simulated bundle, got %+v", bundle)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/runs/"+rec.ID.String()+"/artifacts/download", nil)
	expectStatus(t, resp, http.StatusOK)
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("expected attachment, got %q", resp.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(resp.Body.String(), rec.ID.String()) {
		t.Errorf("report should mention run id, got %q", resp.Body.String())
	}
}

func TestArtifacts_RealBackendError(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/artifacts/") {
			http.Error(w, "no artifacts", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "Running 1 test\n")
	}))
	defer backendSrv.Close()

	f := newFixture(t, nil, nil)
	feature := f.addFeature(t, "api", "Feature: API\n")

	cfg := domain.DefaultExecutionConfig()
	cfg.Mode = domain.ModeReal
	cfg.BackendURL = backendSrv.URL
	if err := f.coord.Settings().Update(cfg); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	f.coord.Run(domain.NewRunRequest(feature, nil, false))
	f.waitIdle(t)

	rec := f.coord.Ledger().List(1, 0)[0]
	if rec.Origin != domain.OriginReal {
		t.Fatalf("expected real record, got %s", rec.Origin)
	}

	resp := f.do(t, http.MethodGet, "/api/v1/runs/"+rec.ID.String()+"/artifacts", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = f.do(t, http.MethodGet, "/api/v1/runs/"+rec.ID.String()+"/artifacts/download", nil)
	expectStatus(t, resp, http.StatusBadGateway)
}

// --- Config ---

func TestConfig_Update(t *testing.T) {
	f := newFixture(t, nil, nil)

	mode := domain.ModeReal
	url := "http://runner:3001"
	rec := f.do(t, http.MethodPut, "/api/v1/config", UpdateConfigRequest{Mode: &mode, BackendURL: &url})
	expectStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodGet, "/api/v1/config", nil)
	got := decodeData[domain.ExecutionConfig](t, rec)
	if got.Mode != domain.ModeReal || got.BackendURL != url || got.Method != domain.MethodHost {
		t.Errorf("unexpected config %+v", got)
	}

	bad := domain.ExecutionMode("remote")
	expectStatus(t, f.do(t, http.MethodPut, "/api/v1/config", UpdateConfigRequest{Mode: &bad}), http.StatusBadRequest)

	if f.coord.Settings().Get().Mode != domain.ModeReal {
		t.Error("rejected update must not change settings")
	}
}

// --- Environments ---

func TestEnvironments(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/environments", nil)
	expectStatus(t, rec, http.StatusOK)
	envs := decodeData[[]EnvironmentResponse](t, rec)
	if len(envs) != 1 || !envs[0].Active {
		t.Fatalf("expected one active default environment, got %+v", envs)
	}
	localID := envs[0].ID

	rec = f.do(t, http.MethodPost, "/api/v1/environments", CreateEnvironmentRequest{Name: "Staging", URL: "https://staging.example.com"})
	expectStatus(t, rec, http.StatusCreated)
	staging := decodeData[EnvironmentResponse](t, rec)
	if staging.Active {
		t.Error("new environment should not steal active flag")
	}

	rec = f.do(t, http.MethodPost, "/api/v1/environments/"+staging.ID+"/activate", nil)
	expectStatus(t, rec, http.StatusOK)
	if active, ok := f.envs.Active(); !ok || active.ID != staging.ID {
		t.Errorf("expected staging active, got %+v", active)
	}

	rec = f.do(t, http.MethodPut, "/api/v1/environments/"+staging.ID+"/variables/TEST_PASSWORD", SetVariableRequest{Value: "HopTester2007"})
	expectStatus(t, rec, http.StatusOK)
	updated := decodeData[EnvironmentResponse](t, rec)
	if len(updated.Variables) != 1 || updated.Variables[0].Value != "HopT...07" || !updated.Variables[0].Sensitive {
		t.Errorf("expected masked sensitive variable, got %+v", updated.Variables)
	}

	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/environments/"+staging.ID+"/variables/TEST_PASSWORD", nil), http.StatusOK)
	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/environments/"+staging.ID+"/variables/TEST_PASSWORD", nil), http.StatusNotFound)

	expectStatus(t, f.do(t, http.MethodDelete, "/api/v1/environments/"+staging.ID, nil), http.StatusNoContent)
	if active, _ := f.envs.Active(); active.ID != localID {
		t.Errorf("deleting active env should activate the remaining one, got %s", active.ID)
	}

	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/environments/missing/activate", nil), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/environments", CreateEnvironmentRequest{}), http.StatusBadRequest)
}

// --- Logs ---

func TestLogs_Since(t *testing.T) {
	f := newFixture(t, nil, nil)
	feature := f.addFeature(t, "a", "Feature: A\n")

	f.coord.Run(domain.NewRunRequest(feature, nil, false))
	f.waitIdle(t)

	rec := f.do(t, http.MethodGet, "/api/v1/logs?since=0", nil)
	expectStatus(t, rec, http.StatusOK)
	all := decodeData[LogsResponse](t, rec)
	if len(all.Lines) == 0 || all.Lines[0].Text != logsink.Separator {
		t.Fatalf("expected lines starting with separator, got %+v", all.Lines)
	}
	if all.LastSeq != all.Lines[len(all.Lines)-1].Seq {
		t.Errorf("last_seq %d does not match last line %d", all.LastSeq, all.Lines[len(all.Lines)-1].Seq)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/logs?since=2", nil)
	tail := decodeData[LogsResponse](t, rec)
	if len(tail.Lines) != len(all.Lines)-2 {
		t.Errorf("expected %d lines after seq 2, got %d", len(all.Lines)-2, len(tail.Lines))
	}

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/logs?since=abc", nil), http.StatusBadRequest)
}

func TestLogs_WebSocketStream(t *testing.T) {
	f := newFixture(t, nil, nil)
	feature := f.addFeature(t, "a", "Feature: A\n")

	f.coord.Run(domain.NewRunRequest(feature, nil, false))
	f.waitIdle(t)

	srv := httptest.NewServer(f.mux)
	defer srv.Close()
	defer f.handler.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/logs/ws?since=0"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Сначала история
	var first logsink.Line
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read history: %v", err)
	}
	if first.Seq != 1 || first.Text != logsink.Separator {
		t.Errorf("expected separator with seq 1, got %+v", first)
	}

	// Затем новые строки второго запуска
	second := domain.NewRunRequest(feature, nil, false)
	f.coord.Run(second)

	for {
		var line logsink.Line
		if err := conn.ReadJSON(&line); err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if line.RunID == second.ID && line.Text == "Done in 2.5s." {
			break
		}
	}
}

// --- Command ---

type fakeInterpreter struct {
	out *command.Interpretation
}

func (f *fakeInterpreter) Interpret(context.Context, string) (*command.Interpretation, error) {
	return f.out, nil
}

func TestCommand(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		expectStatus(t, f.do(t, http.MethodPost, "/api/v1/command", CommandRequest{Text: "run login"}), http.StatusServiceUnavailable)
	})

	t.Run("runs matching feature", func(t *testing.T) {
		interp := &fakeInterpreter{out: &command.Interpretation{
			Calls: []command.ToolCall{{
				Name: command.ToolRunTestExecution,
				Args: command.RunArgs{ScenarioName: "login"},
			}},
		}}

		f := newFixture(t, nil, func(cfg *Config) {
			cfg.Commands = command.NewAdapter(command.Config{
				Interpreter: interp,
				Features:    cfg.Features,
				Runner:      cfg.Coordinator,
			})
		})
		f.addFeature(t, "default-1", "Feature: User Login\n")

		rec := f.do(t, http.MethodPost, "/api/v1/command", CommandRequest{Text: "please run the login test"})
		expectStatus(t, rec, http.StatusOK)

		reply := decodeData[command.Reply](t, rec)
		if !reply.Started || reply.FeatureID != "default-1" {
			t.Errorf("expected login started, got %+v", reply)
		}
		f.waitIdle(t)

		expectStatus(t, f.do(t, http.MethodPost, "/api/v1/command", CommandRequest{Text: "  "}), http.StatusBadRequest)
	})
}

// --- Backend ---

func TestBackendHealth(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"status":"ok","engine":"playwright","mode":"inside-container"}`)
	}))

	f := newFixture(t, nil, nil)
	cfg := f.coord.Settings().Get()
	cfg.BackendURL = backendSrv.URL
	f.coord.Settings().Update(cfg)

	rec := f.do(t, http.MethodGet, "/api/v1/backend/health", nil)
	expectStatus(t, rec, http.StatusOK)
	health := decodeData[BackendHealthResponse](t, rec)
	if health.Status != "ok" || !health.InsideContainer {
		t.Errorf("unexpected health %+v", health)
	}

	backendSrv.Close()
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/backend/health", nil), http.StatusBadGateway)
}

func TestContainerLogs(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("container") != "playwright-runner" {
			http.Error(w, "unknown container", http.StatusNotFound)
			return
		}
		io.WriteString(w, "line one\r\nline two\n")
	}))
	defer backendSrv.Close()

	f := newFixture(t, nil, nil)
	cfg := f.coord.Settings().Get()
	cfg.BackendURL = backendSrv.URL
	f.coord.Settings().Update(cfg)

	rec := f.do(t, http.MethodGet, "/api/v1/backend/containers/default/logs", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "line one\nline two\n" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}

	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/backend/containers/other/logs", nil), http.StatusBadGateway)
}

// --- Schedules ---

func TestSchedules(t *testing.T) {
	f := newFixture(t, nil, func(cfg *Config) {
		cfg.Scheduler = scheduler.New(scheduler.Config{
			Store:    scheduler.NewMemoryStore(),
			Features: cfg.Features,
			Queue:    cfg.Coordinator,
		})
	})

	expectStatus(t, f.do(t, http.MethodPost, "/api/v1/schedules", CreateScheduleRequest{CronExpr: "not cron"}), http.StatusBadRequest)

	rec := f.do(t, http.MethodPost, "/api/v1/schedules", CreateScheduleRequest{Name: "nightly", CronExpr: "0 3 * * *", Tag: "smoke"})
	expectStatus(t, rec, http.StatusCreated)
	created := decodeData[domain.Schedule](t, rec)
	if created.Tag != "@smoke" || !created.Enabled || created.NextDueAt == nil {
		t.Errorf("unexpected schedule %+v", created)
	}

	path := "/api/v1/schedules/" + created.ID.String()

	rec = f.do(t, http.MethodPut, path+"/enabled", SetEnabledRequest{Enabled: false})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeData[domain.Schedule](t, rec); got.Enabled {
		t.Error("schedule should be disabled")
	}

	rec = f.do(t, http.MethodGet, "/api/v1/schedules?enabled=false", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeData[[]domain.Schedule](t, rec); len(list) != 1 {
		t.Errorf("expected 1 disabled schedule, got %d", len(list))
	}

	expectStatus(t, f.do(t, http.MethodDelete, path, nil), http.StatusNoContent)
	expectStatus(t, f.do(t, http.MethodGet, path, nil), http.StatusNotFound)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/schedules/bad-id", nil), http.StatusBadRequest)
}

func TestSchedules_NotRegisteredWithoutScheduler(t *testing.T) {
	f := newFixture(t, nil, nil)
	expectStatus(t, f.do(t, http.MethodGet, "/api/v1/schedules", nil), http.StatusNotFound)
}

// --- Middleware ---

func TestCORS_Preflight(t *testing.T) {
	f := newFixture(t, nil, func(cfg *Config) {
		cfg.CORSOrigins = []string{"http://ui.local"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/features", nil)
	req.Header.Set("Origin", "http://ui.local")
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Errorf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/features", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not be allowed")
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := Chain(Recovery(logger), Logging(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
