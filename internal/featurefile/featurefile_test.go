package featurefile

import (
	"errors"
	"reflect"
	"testing"
)

const loginFeature = `@auth
Feature: User Login
  As a user I want to sign in

  @smoke
  Scenario: Successful login
    Given I am on the login page
    When I sign in as "user@example.com"
    Then I see the dashboard

  Rule: lockout
    @slow
    Scenario: Too many attempts
      Given I failed to sign in 5 times
      Then my account is locked
`

func TestParse(t *testing.T) {
	s, err := Parse(loginFeature)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Title != "User Login" {
		t.Errorf("expected title 'User Login', got %q", s.Title)
	}
	if s.Language != "en" {
		t.Errorf("expected language en, got %q", s.Language)
	}

	wantScenarios := []string{"Successful login", "Too many attempts"}
	if !reflect.DeepEqual(s.Scenarios, wantScenarios) {
		t.Errorf("expected scenarios %v, got %v", wantScenarios, s.Scenarios)
	}

	// Email в шаге — не тег
	wantTags := []string{"@auth", "@slow", "@smoke"}
	if !reflect.DeepEqual(s.Tags, wantTags) {
		t.Errorf("expected tags %v, got %v", wantTags, s.Tags)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"empty", "   \n", ErrInvalid},
		{"garbage", "Feature: A\n  Scenario: B\n    Given x\n  Feature: C\n", ErrInvalid},
		{"no feature", "# just a comment\n", ErrNoFeature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	title, err := Title("Feature: Checkout\n  Scenario: pay\n    Given a cart\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Checkout" {
		t.Errorf("expected Checkout, got %q", title)
	}

	if _, err := Title("Feature:\n"); !errors.Is(err, ErrInvalid) {
		t.Errorf("nameless feature should be invalid, got %v", err)
	}
}

func TestSplitStepFiles(t *testing.T) {
	code := "// ==========\n" +
		"// 📁 tests/pages/LoginPage.ts\n" +
		"// ==========\n" +
		"export class LoginPage {}\n" +
		"\n" +
		"// ==========\n" +
		"// 📁 tests/steps/login.steps.ts\n" +
		"// ==========\n" +
		"Given('I am on the login page', async () => {});\n"

	files := SplitStepFiles(code)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	if files[0].Path != "tests/pages/LoginPage.ts" || files[0].Name != "LoginPage.ts" {
		t.Errorf("unexpected first file %+v", files[0])
	}
	if files[0].Content != "export class LoginPage {}" {
		t.Errorf("unexpected first content %q", files[0].Content)
	}
	if files[1].Name != "login.steps.ts" {
		t.Errorf("unexpected second file %+v", files[1])
	}
	if files[1].Content != "Given('I am on the login page', async () => {});" {
		t.Errorf("unexpected second content %q", files[1].Content)
	}
}

func TestSplitStepFiles_Fallback(t *testing.T) {
	code := "Given('x', () => {});"

	files := SplitStepFiles(code)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Path != DefaultStepsPath || files[0].Name != "steps.ts" || files[0].Content != code {
		t.Errorf("unexpected fallback file %+v", files[0])
	}

	if got := SplitStepFiles(""); len(got) != 0 {
		t.Errorf("empty code should give no files, got %v", got)
	}
}
