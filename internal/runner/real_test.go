package runner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shaiso/Stagehand/internal/backend"
	"github.com/shaiso/Stagehand/internal/domain"
)

func TestRealDriver_Payload(t *testing.T) {
	var got backend.RunPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, "ok\n")
	}))
	defer server.Close()

	cfg := domain.ExecutionConfig{
		Mode:          domain.ModeReal,
		Method:        domain.MethodDocker,
		BackendURL:    server.URL,
		ContainerName: "playwright-runner",
	}
	f := domain.Feature{ID: "f-1", Title: "Checkout", Content: "Feature: Checkout", StepsCode: "// steps"}

	_, err := NewRealDriver(RealConfig{}).Execute(context.Background(), Execution{
		Request: domain.NewRunRequest(f, []string{"@smoke", "@cart"}, false),
		Config:  cfg,
		Emit:    func(string) {},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.FeatureTitle != "Checkout" || got.FeatureCode != "Feature: Checkout" || got.StepsCode != "// steps" {
		t.Errorf("unexpected feature fields: %+v", got)
	}
	if got.ExecutionMode != "docker" || got.ContainerName != "playwright-runner" {
		t.Errorf("unexpected execution fields: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "@smoke" {
		t.Errorf("unexpected tags %v", got.Tags)
	}
}

func TestRealDriver_HostSendsContainer(t *testing.T) {
	var raw map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		io.WriteString(w, "ok\n")
	}))
	defer server.Close()

	cfg := domain.ExecutionConfig{Mode: domain.ModeReal, Method: domain.MethodHost, BackendURL: server.URL, ContainerName: "playwright"}
	NewRealDriver(RealConfig{}).Execute(context.Background(), Execution{
		Request: domain.NewRunRequest(domain.Feature{ID: "f", Title: "F"}, nil, false),
		Config:  cfg,
		Emit:    func(string) {},
	})

	// Поле присутствует в обоих режимах, сервис сам решает, нужно ли оно
	if raw["containerName"] != "playwright" || raw["executionMode"] != "host" {
		t.Errorf("unexpected body %v", raw)
	}
	if tags, ok := raw["tags"].([]any); !ok || len(tags) != 0 {
		t.Errorf("tags should be an empty array, got %v", raw["tags"])
	}
}

func TestRealDriver_MeasuresDuration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "done\n")
	}))
	defer server.Close()

	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	calls := 0
	now := func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * 3 * time.Second)
	}

	out, err := NewRealDriver(RealConfig{Now: now}).Execute(context.Background(), Execution{
		Request: domain.NewRunRequest(domain.Feature{ID: "f", Title: "F"}, nil, false),
		Config:  domain.ExecutionConfig{Mode: domain.ModeReal, Method: domain.MethodHost, BackendURL: server.URL},
		Emit:    func(string) {},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Duration != 3*time.Second {
		t.Errorf("expected 3s, got %v", out.Duration)
	}
}

func TestRealDriver_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewRealDriver(RealConfig{}).Execute(context.Background(), Execution{
		Request: domain.NewRunRequest(domain.Feature{ID: "f", Title: "F"}, nil, false),
		Config:  domain.ExecutionConfig{Mode: domain.ModeReal, Method: domain.MethodHost, BackendURL: url},
		Emit:    func(string) {},
	})
	if !errors.Is(err, backend.ErrRequest) {
		t.Errorf("expected backend.ErrRequest, got %v", err)
	}
}
