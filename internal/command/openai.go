package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultSystemPrompt = "You control a Playwright test runner. " +
	"When the user asks to run a test scenario, call run_test_execution with the scenario name, " +
	"optional tags and whether it is a dry run. Otherwise answer briefly."

// OpenAIConfig — настройки OpenAI-совместимого сервиса.
type OpenAIConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	SystemPrompt string
	HTTPClient   *http.Client
}

// OpenAIClient вызывает /chat/completions с описанием run_test_execution.
type OpenAIClient struct {
	endpoint     string
	apiKey       string
	model        string
	systemPrompt string
	http         *http.Client
}

// NewOpenAIClient создаёт клиента.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	return &OpenAIClient{
		endpoint:     normalizeBaseURL(cfg.BaseURL) + "/chat/completions",
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		systemPrompt: prompt,
		http:         httpClient,
	}
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Tools      []chatTool    `json:"tools"`
	ToolChoice string        `json:"tool_choice"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

var runTool = chatTool{
	Type: "function",
	Function: toolFunction{
		Name:        ToolRunTestExecution,
		Description: "Run a test scenario by name.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"scenarioName": map[string]any{
					"type":        "string",
					"description": "Name (or part of the name) of the feature to run",
				},
				"tags": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"dryRun": map[string]any{"type": "boolean"},
			},
			"required": []string{"scenarioName"},
		},
	},
}

// Interpret отправляет текст сервису и разбирает вызовы операций.
func (c *OpenAIClient) Interpret(ctx context.Context, text string) (*Interpretation, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: text},
		},
		Tools:      []chatTool{runTool},
		ToolChoice: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("response missing choices")
	}

	msg := decoded.Choices[0].Message
	out := &Interpretation{Text: strings.TrimSpace(msg.Content)}

	for _, tc := range msg.ToolCalls {
		call := ToolCall{Name: tc.Function.Name}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Args); err != nil {
				return nil, fmt.Errorf("decode %s arguments: %w", tc.Function.Name, err)
			}
		}
		out.Calls = append(out.Calls, call)
	}

	return out, nil
}

func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = "https://api.openai.com"
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}
