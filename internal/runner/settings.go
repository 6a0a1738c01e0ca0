package runner

import (
	"sync"

	"github.com/shaiso/Stagehand/internal/domain"
)

// Settings хранит текущий ExecutionConfig.
//
// Координатор берёт снимок в начале каждого запуска, поэтому Update
// во время выполнения влияет только на следующие запуски.
type Settings struct {
	mu  sync.RWMutex
	cfg domain.ExecutionConfig
}

// NewSettings создаёт хранилище с начальными настройками.
func NewSettings(cfg domain.ExecutionConfig) *Settings {
	return &Settings{cfg: cfg}
}

// Get возвращает копию текущих настроек.
func (s *Settings) Get() domain.ExecutionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update проверяет и сохраняет новые настройки.
func (s *Settings) Update(cfg domain.ExecutionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}
