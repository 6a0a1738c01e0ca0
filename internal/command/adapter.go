package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/library"
)

// GenericReply — ответ пользователю при любой ошибке сервиса.
const GenericReply = "Sorry, I could not process that command right now."

// ToolRunTestExecution — единственная операция, доступная сервису.
const ToolRunTestExecution = "run_test_execution"

// RunArgs — аргументы run_test_execution.
type RunArgs struct {
	ScenarioName string   `json:"scenarioName"`
	Tags         []string `json:"tags,omitempty"`
	DryRun       bool     `json:"dryRun,omitempty"`
}

// ToolCall — запрос сервиса на вызов операции.
type ToolCall struct {
	Name string
	Args RunArgs
}

// Interpretation — ответ сервиса на текст пользователя.
type Interpretation struct {
	// Text — текстовый ответ сервиса (может быть пустым, если есть вызовы).
	Text  string
	Calls []ToolCall
}

// Interpreter — внешний сервис, превращающий текст в вызовы операций.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*Interpretation, error)
}

// Runner — прямая точка запуска. Возвращает false, если слот занят.
type Runner interface {
	Run(req *domain.RunRequest) bool
}

// Reply — результат обработки команды.
type Reply struct {
	Reply     string `json:"reply"`
	FeatureID string `json:"feature_id,omitempty"`
	Started   bool   `json:"started"`
}

// Adapter связывает сервис интерпретации с библиотекой features и раннером.
type Adapter struct {
	interpreter Interpreter
	features    library.FeatureStore
	runner      Runner
	logger      *slog.Logger
}

// Config — конфигурация Adapter.
type Config struct {
	Interpreter Interpreter
	Features    library.FeatureStore
	Runner      Runner
	Logger      *slog.Logger
}

// NewAdapter создаёт Adapter. Interpreter может быть nil:
// тогда Handle сообщает, что сервис не настроен.
func NewAdapter(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		interpreter: cfg.Interpreter,
		features:    cfg.Features,
		runner:      cfg.Runner,
		logger:      logger,
	}
}

// Configured сообщает, подключён ли сервис интерпретации.
func (a *Adapter) Configured() bool {
	return a.interpreter != nil
}

// Handle обрабатывает текст пользователя.
//
// Ошибки сервиса не возвращаются: пользователь получает GenericReply.
// Если сервис просит run_test_execution, feature ищется по подстроке
// в названии без учёта регистра (первое совпадение) и передаётся в Runner.
func (a *Adapter) Handle(ctx context.Context, text string) (Reply, error) {
	if a.interpreter == nil {
		return Reply{}, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyCommand
	}

	out, err := a.interpreter.Interpret(ctx, text)
	if err != nil {
		a.logger.Warn("assistant request failed", "error", err)
		return Reply{Reply: GenericReply}, nil
	}

	for _, call := range out.Calls {
		if call.Name != ToolRunTestExecution {
			a.logger.Debug("ignoring unknown tool call", "tool", call.Name)
			continue
		}
		return a.runScenario(ctx, call.Args), nil
	}

	if strings.TrimSpace(out.Text) == "" {
		return Reply{Reply: GenericReply}, nil
	}
	return Reply{Reply: out.Text}, nil
}

func (a *Adapter) runScenario(ctx context.Context, args RunArgs) Reply {
	f, err := library.FindByTitle(ctx, a.features, args.ScenarioName)
	if errors.Is(err, library.ErrNotFound) || errors.Is(err, library.ErrInvalid) {
		return Reply{Reply: fmt.Sprintf("I could not find a feature matching %q.", args.ScenarioName)}
	}
	if err != nil {
		a.logger.Error("feature lookup failed", "scenario", args.ScenarioName, "error", err)
		return Reply{Reply: GenericReply}
	}

	req := domain.NewRunRequest(*f, args.Tags, args.DryRun)
	if !a.runner.Run(req) {
		a.logger.Info("command run ignored, runner busy", "feature_id", f.ID)
		return Reply{
			Reply:     fmt.Sprintf("The runner is busy, %q was not started.", f.Title),
			FeatureID: f.ID,
		}
	}

	a.logger.Info("command run started", "feature_id", f.ID, "run_id", req.ID, "dry_run", args.DryRun)

	msg := fmt.Sprintf("Running %q.", f.Title)
	if args.DryRun {
		msg = fmt.Sprintf("Dry run of %q started.", f.Title)
	}
	return Reply{Reply: msg, FeatureID: f.ID, Started: true}
}
