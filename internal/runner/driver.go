package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Stagehand/internal/domain"
)

// Driver выполняет одну заявку в конкретном режиме.
//
// Реализации: SimulatedDriver, RealDriver.
//
// Драйвер пишет строки лога через Execution.Emit в порядке их
// появления. Ошибка означает неудачное выполнение: координатор сам
// запишет строку об ошибке и failed-запись в журнал.
type Driver interface {
	Execute(ctx context.Context, exec Execution) (Outcome, error)
}

// Execution — входные данные одного выполнения.
type Execution struct {
	Request     *domain.RunRequest
	Config      domain.ExecutionConfig
	Environment domain.Environment

	// Emit добавляет строку в лог запуска.
	Emit func(line string)
}

// Outcome — результат успешно завершённого выполнения.
type Outcome struct {
	Status      domain.RunStatus
	Duration    time.Duration
	Screenshots []string
}

// Registry — реестр драйверов по режиму выполнения.
type Registry struct {
	drivers map[domain.ExecutionMode]Driver
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[domain.ExecutionMode]Driver)}
}

// NewDefaultRegistry создаёт реестр с драйверами simulated и real.
func NewDefaultRegistry(sim SimulatedConfig, realCfg RealConfig) *Registry {
	r := NewRegistry()
	r.Register(domain.ModeSimulated, NewSimulatedDriver(sim))
	r.Register(domain.ModeReal, NewRealDriver(realCfg))
	return r
}

// Register добавляет драйвер для режима.
func (r *Registry) Register(mode domain.ExecutionMode, d Driver) {
	r.drivers[mode] = d
}

// Get возвращает драйвер для режима.
func (r *Registry) Get(mode domain.ExecutionMode) (Driver, error) {
	d, ok := r.drivers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return d, nil
}
