package library

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Stagehand/internal/domain"
)

// Environments — набор целевых окружений.
//
// Инвариант: если набор не пуст, активно ровно одно окружение.
// Первое добавленное окружение становится активным; при удалении
// активного активным становится первое оставшееся.
type Environments struct {
	mu   sync.RWMutex
	envs []domain.Environment
}

// NewEnvironments создаёт набор из начальных окружений.
// Если активных нет, активным становится первое; если их несколько — остаётся первое из них.
func NewEnvironments(initial ...domain.Environment) *Environments {
	s := &Environments{
		envs: make([]domain.Environment, 0, len(initial)),
	}

	activeSeen := false
	for _, e := range initial {
		e = e.Clone()
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Active {
			if activeSeen {
				e.Active = false
			}
			activeSeen = true
		}
		s.envs = append(s.envs, e)
	}
	if !activeSeen && len(s.envs) > 0 {
		s.envs[0].Active = true
	}
	return s
}

// List возвращает копии всех окружений в порядке добавления.
func (s *Environments) List() []domain.Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Environment, len(s.envs))
	for i, e := range s.envs {
		result[i] = e.Clone()
	}
	return result
}

// Get возвращает окружение по ID.
func (s *Environments) Get(id string) (domain.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Environment{}, fmt.Errorf("%w: environment %s", ErrNotFound, id)
	}
	return s.envs[i].Clone(), nil
}

// Active возвращает активное окружение.
func (s *Environments) Active() (domain.Environment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.envs {
		if e.Active {
			return e.Clone(), true
		}
	}
	return domain.Environment{}, false
}

// Add добавляет окружение. Первое окружение в пустом наборе становится активным.
func (s *Environments) Add(name, url string, vars []domain.EnvVar) (domain.Environment, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" || url == "" {
		return domain.Environment{}, fmt.Errorf("%w: environment name and url are required", ErrInvalid)
	}
	for _, v := range vars {
		if strings.TrimSpace(v.Key) == "" {
			return domain.Environment{}, fmt.Errorf("%w: variable key is required", ErrInvalid)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env := domain.Environment{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		Active:    len(s.envs) == 0,
		Variables: append([]domain.EnvVar{}, vars...),
	}
	s.envs = append(s.envs, env)

	return env.Clone(), nil
}

// Activate делает окружение активным, снимая флаг с остальных.
func (s *Environments) Activate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: environment %s", ErrNotFound, id)
	}
	for j := range s.envs {
		s.envs[j].Active = j == i
	}
	return nil
}

// Delete удаляет окружение.
func (s *Environments) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: environment %s", ErrNotFound, id)
	}

	wasActive := s.envs[i].Active
	s.envs = append(s.envs[:i], s.envs[i+1:]...)

	if wasActive && len(s.envs) > 0 {
		s.envs[0].Active = true
	}
	return nil
}

// SetVariable добавляет переменную или меняет значение существующей.
func (s *Environments) SetVariable(id, key, value string) (domain.Environment, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Environment{}, fmt.Errorf("%w: variable key is required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Environment{}, fmt.Errorf("%w: environment %s", ErrNotFound, id)
	}

	env := &s.envs[i]
	for j := range env.Variables {
		if env.Variables[j].Key == key {
			env.Variables[j].Value = value
			return env.Clone(), nil
		}
	}
	env.Variables = append(env.Variables, domain.EnvVar{Key: key, Value: value})

	return env.Clone(), nil
}

// DeleteVariable удаляет переменную.
func (s *Environments) DeleteVariable(id, key string) (domain.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Environment{}, fmt.Errorf("%w: environment %s", ErrNotFound, id)
	}

	env := &s.envs[i]
	for j := range env.Variables {
		if env.Variables[j].Key == key {
			env.Variables = append(env.Variables[:j], env.Variables[j+1:]...)
			return env.Clone(), nil
		}
	}
	return domain.Environment{}, fmt.Errorf("%w: variable %s", ErrNotFound, key)
}

func (s *Environments) indexLocked(id string) int {
	for i, e := range s.envs {
		if e.ID == id {
			return i
		}
	}
	return -1
}
