package domain

import (
	"errors"
	"fmt"
	"net/url"
)

// ExecutionMode — режим выполнения.
type ExecutionMode string

const (
	// ModeSimulated — проигрывание заранее заданного сценария лога.
	ModeSimulated ExecutionMode = "simulated"

	// ModeReal — запуск через внешний сервис выполнения.
	ModeReal ExecutionMode = "real"
)

// ExecutionMethod — где внешний сервис запускает тесты.
type ExecutionMethod string

const (
	MethodHost   ExecutionMethod = "host"
	MethodDocker ExecutionMethod = "docker"
)

// ExecutionConfig — глобальные настройки выполнения.
//
// Читается в начале каждого запуска; изменения во время запуска
// влияют только на следующие запуски.
type ExecutionConfig struct {
	Mode          ExecutionMode   `json:"mode" mapstructure:"mode"`
	Method        ExecutionMethod `json:"execution_method" mapstructure:"method"`
	BackendURL    string          `json:"backend_url" mapstructure:"backend_url"`
	ContainerName string          `json:"container_name" mapstructure:"container_name"`
}

// DefaultExecutionConfig возвращает настройки по умолчанию.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Mode:          ModeSimulated,
		Method:        MethodHost,
		BackendURL:    "http://localhost:3001",
		ContainerName: "playwright-runner",
	}
}

// ErrInvalidConfig — настройки выполнения некорректны.
var ErrInvalidConfig = errors.New("invalid execution config")

// Validate проверяет настройки.
func (c ExecutionConfig) Validate() error {
	switch c.Mode {
	case ModeSimulated, ModeReal:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}

	switch c.Method {
	case MethodHost, MethodDocker:
	default:
		return fmt.Errorf("%w: unknown execution method %q", ErrInvalidConfig, c.Method)
	}

	if c.Mode == ModeReal {
		u, err := url.Parse(c.BackendURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: backend url %q is not absolute", ErrInvalidConfig, c.BackendURL)
		}
	}

	if c.Method == MethodDocker && c.ContainerName == "" {
		return fmt.Errorf("%w: container name is required for docker", ErrInvalidConfig)
	}

	return nil
}

// Origin возвращает Origin записей, создаваемых в этом режиме.
func (c ExecutionConfig) Origin() Origin {
	if c.Mode == ModeReal {
		return OriginReal
	}
	return OriginSimulated
}
