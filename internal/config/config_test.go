package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/Stagehand/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stagehand.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	src, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.File() != "" {
		t.Errorf("no file expected, got %s", src.File())
	}

	cfg := src.Config()
	if cfg.Execution.ExecutionConfig != domain.DefaultExecutionConfig() {
		t.Errorf("unexpected execution defaults %+v", cfg.Execution.ExecutionConfig)
	}
	if cfg.Execution.RunTimeout != 15*time.Minute {
		t.Errorf("expected 15m run timeout, got %s", cfg.Execution.RunTimeout)
	}
	if cfg.Ledger.Capacity != 500 || cfg.Logs.MaxLines != 5000 || cfg.Simulation.Speed != 1 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Server.Addr() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Server.Addr())
	}
	if cfg.Assistant.Enabled() {
		t.Error("assistant should be disabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
execution:
  mode: real
  method: docker
  backend_url: http://runner:3001
  container_name: pw
  run_timeout: 2m
simulation:
  speed: 4
ledger:
  capacity: 50
assistant:
  model: gpt-4o-mini
`)

	src, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := src.Config()
	want := domain.ExecutionConfig{
		Mode:          domain.ModeReal,
		Method:        domain.MethodDocker,
		BackendURL:    "http://runner:3001",
		ContainerName: "pw",
	}
	if cfg.Execution.ExecutionConfig != want {
		t.Errorf("expected %+v, got %+v", want, cfg.Execution.ExecutionConfig)
	}
	if cfg.Execution.RunTimeout != 2*time.Minute {
		t.Errorf("expected 2m, got %s", cfg.Execution.RunTimeout)
	}
	if cfg.Simulation.Speed != 4 || cfg.Ledger.Capacity != 50 {
		t.Errorf("unexpected values %+v", cfg)
	}
	if cfg.Server.Addr() != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Server.Addr())
	}
	if !cfg.Assistant.Enabled() {
		t.Error("assistant should be enabled")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "execution:\n  mode: simulated\n")
	t.Setenv("STAGEHAND_EXECUTION_MODE", "real")
	t.Setenv("STAGEHAND_LEDGER_CAPACITY", "7")
	t.Setenv("API_PORT", "7000")

	src, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := src.Config()
	if cfg.Execution.Mode != domain.ModeReal {
		t.Errorf("env should override file, got %s", cfg.Execution.Mode)
	}
	if cfg.Ledger.Capacity != 7 {
		t.Errorf("expected capacity 7, got %d", cfg.Ledger.Capacity)
	}
	if cfg.Server.Addr() != ":7000" {
		t.Errorf("expected :7000 from API_PORT, got %s", cfg.Server.Addr())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"unknown mode", "execution:\n  mode: remote\n", domain.ErrInvalidConfig},
		{"zero speed", "simulation:\n  speed: 0\n", ErrInvalid},
		{"negative timeout", "execution:\n  run_timeout: -1s\n", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Error("explicit missing file should be an error")
	}
}

func TestWatch_AppliesChanges(t *testing.T) {
	path := writeConfig(t, "execution:\n  mode: simulated\n")

	src, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed := make(chan *Config, 16)
	src.Watch(func(c *Config) { changed <- c })

	if err := os.WriteFile(path, []byte("execution:\n  mode: real\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// Запись файла может дать несколько событий, первое иногда видит пустой файл
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Execution.Mode != domain.ModeReal {
				continue
			}
			if src.Config().Execution.Mode != domain.ModeReal {
				t.Error("source should hold the reloaded config")
			}
			return
		case <-timeout:
			t.Fatal("config change was not observed")
		}
	}
}
