package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Stagehand/internal/domain"
)

func TestSelectScript(t *testing.T) {
	env := domain.Environment{Name: "QA", URL: "https://qa.example.com"}

	tests := []struct {
		name      string
		feature   domain.Feature
		wantName  string
		wantLines int
		wantDur   time.Duration
	}{
		{"login by title", domain.Feature{ID: "x", Title: "User Login"}, "login", 15, 4200 * time.Millisecond},
		{"login by id", domain.Feature{ID: "default-1", Title: "Sign in"}, "login", 15, 4200 * time.Millisecond},
		{"generic", domain.Feature{ID: "f-9", Title: "Checkout"}, "generic", 11, 2500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SelectScript(tt.feature, env)
			if s.Name != tt.wantName {
				t.Errorf("expected script %s, got %s", tt.wantName, s.Name)
			}
			if len(s.Steps) != tt.wantLines {
				t.Errorf("expected %d lines, got %d", tt.wantLines, len(s.Steps))
			}
			if s.Duration != tt.wantDur {
				t.Errorf("expected duration %v, got %v", tt.wantDur, s.Duration)
			}
		})
	}
}

func TestScript_StepsAreOrdered(t *testing.T) {
	for _, s := range []Script{
		SelectScript(domain.Feature{ID: "default-1", Title: "User Login"}, domain.Environment{}),
		SelectScript(domain.Feature{ID: "f", Title: "F"}, domain.Environment{}),
	} {
		for i := 1; i < len(s.Steps); i++ {
			if s.Steps[i].At < s.Steps[i-1].At {
				t.Errorf("%s: step %d goes back in time", s.Name, i)
			}
		}
	}
}

func TestScript_Screenshots(t *testing.T) {
	login := SelectScript(domain.Feature{Title: "User Login"}, domain.Environment{})
	shots := login.Screenshots()
	if len(shots) != 2 || shots[0] != "1-landing-page.png" || shots[1] != "2-dashboard-signed-in.png" {
		t.Errorf("unexpected screenshots %v", shots)
	}

	generic := SelectScript(domain.Feature{Title: "Checkout"}, domain.Environment{})
	if len(generic.Screenshots()) != 0 {
		t.Error("generic script has no screenshots")
	}
}

func TestSimulatedDriver_Timeline(t *testing.T) {
	var waits []time.Duration
	driver := NewSimulatedDriver(SimulatedConfig{
		Sleep: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	})

	var lines []string
	req := domain.NewRunRequest(domain.Feature{ID: "f-1", Title: "Checkout"}, nil, false)
	out, err := driver.Execute(context.Background(), Execution{
		Request: req,
		Emit:    func(l string) { lines = append(lines, l) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Status != domain.RunStatusPassed {
		t.Errorf("expected passed, got %s", out.Status)
	}
	if lines[2] != "Running: Checkout" || lines[len(lines)-1] != "Done in 2.5s." {
		t.Errorf("unexpected lines %q", lines)
	}

	// Сумма ожиданий = последняя строка + 500ms
	var total time.Duration
	for _, w := range waits {
		total += w
	}
	if total != 5700*time.Millisecond {
		t.Errorf("expected total wait 5.7s, got %v", total)
	}
}

func TestSimulatedDriver_Speed(t *testing.T) {
	var total time.Duration
	driver := NewSimulatedDriver(SimulatedConfig{
		Speed: 10,
		Sleep: func(_ context.Context, d time.Duration) error {
			total += d
			return nil
		},
	})

	req := domain.NewRunRequest(domain.Feature{ID: "f-1", Title: "Checkout"}, nil, false)
	driver.Execute(context.Background(), Execution{Request: req, Emit: func(string) {}})

	if total != 570*time.Millisecond {
		t.Errorf("expected 10x faster playback (570ms), got %v", total)
	}
}

func TestSimulatedDriver_Cancelled(t *testing.T) {
	driver := NewSimulatedDriver(SimulatedConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var lines []string
	req := domain.NewRunRequest(domain.Feature{ID: "f-1", Title: "Checkout"}, nil, false)
	_, err := driver.Execute(ctx, Execution{Request: req, Emit: func(l string) { lines = append(lines, l) }})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("no lines expected after cancel, got %q", lines)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewDefaultRegistry(SimulatedConfig{}, RealConfig{})

	if _, err := r.Get(domain.ModeSimulated); err != nil {
		t.Errorf("simulated driver should be registered: %v", err)
	}
	if _, err := r.Get(domain.ModeReal); err != nil {
		t.Errorf("real driver should be registered: %v", err)
	}
	if _, err := r.Get("remote"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}
