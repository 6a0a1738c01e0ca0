package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const seedYAML = `environments:
  - id: env-qa
    name: QA Portal
    url: https://qa.example.com
    variables:
      - key: TEST_USER
        value: tester@example.com
      - key: TEST_PASSWORD
        value: HopTester2007
features:
  - id: default-1
    content: |
      Feature: User Login
        Scenario: Valid Login Flow
          Given I navigate to the portal
    steps_code: |
      Given('I navigate to the portal', async () => {});
`

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seed.Environments) != 1 || seed.Environments[0].Name != "QA Portal" {
		t.Fatalf("unexpected environments %+v", seed.Environments)
	}
	if len(seed.Environments[0].Variables) != 2 {
		t.Errorf("expected 2 variables, got %d", len(seed.Environments[0].Variables))
	}

	store := NewFeatures()
	added, err := seed.Apply(context.Background(), store)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 feature added, got %d", added)
	}

	f, err := store.Get(context.Background(), "default-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if f.Title != "User Login" {
		t.Errorf("expected derived title, got %q", f.Title)
	}

	// Повторное применение пропускает существующие
	added, err = seed.Apply(context.Background(), store)
	if err != nil || added != 0 {
		t.Errorf("expected 0 added and no error, got %d, %v", added, err)
	}

	envs := NewEnvironments(seed.Environments...)
	if active, ok := envs.Active(); !ok || active.ID != "env-qa" {
		t.Errorf("expected env-qa active, got %+v", active)
	}
}

func TestLoadSeed_Missing(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		seed, err := LoadSeed(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if len(seed.Environments) != 1 || seed.Environments[0].Name != "Local Dev" {
			t.Errorf("expected default environment, got %+v", seed.Environments)
		}
	}
}

func TestParseSeed_Invalid(t *testing.T) {
	if _, err := ParseSeed([]byte("environments: [")); err == nil {
		t.Error("expected parse error")
	}
}
