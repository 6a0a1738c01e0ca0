package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/shaiso/Stagehand/internal/domain"
)

// EnvPrefix — префикс переменных окружения (STAGEHAND_EXECUTION_MODE и т.п.).
const EnvPrefix = "STAGEHAND"

// Config — конфигурация сервиса.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Execution  ExecutionConfig  `mapstructure:"execution"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Logs       LogsConfig       `mapstructure:"logs"`
	Library    LibraryConfig    `mapstructure:"library"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Events     EventsConfig     `mapstructure:"events"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// ExecutionConfig — настройки выполнения. Блок перечитывается при изменении файла.
type ExecutionConfig struct {
	domain.ExecutionConfig `mapstructure:",squash"`

	// RunTimeout ограничивает один запуск (0 — без ограничения).
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

type SimulationConfig struct {
	// Speed — множитель скорости проигрывания (2 — вдвое быстрее).
	Speed float64 `mapstructure:"speed"`
}

type LedgerConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type LogsConfig struct {
	MaxLines int `mapstructure:"max_lines"`
}

type LibraryConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AssistantConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enabled сообщает, настроен ли сервис интерпретации команд.
func (a AssistantConfig) Enabled() bool {
	return a.Model != ""
}

// Addr возвращает адрес для http.Server.
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// ErrInvalid — конфигурация некорректна.
var ErrInvalid = errors.New("invalid config")

// Validate проверяет конфигурацию.
func (c *Config) Validate() error {
	if err := c.Execution.Validate(); err != nil {
		return err
	}
	if c.Execution.RunTimeout < 0 {
		return fmt.Errorf("%w: execution.run_timeout must not be negative", ErrInvalid)
	}
	if c.Simulation.Speed <= 0 {
		return fmt.Errorf("%w: simulation.speed must be positive", ErrInvalid)
	}
	if c.Ledger.Capacity <= 0 {
		return fmt.Errorf("%w: ledger.capacity must be positive", ErrInvalid)
	}
	if c.Logs.MaxLines <= 0 {
		return fmt.Errorf("%w: logs.max_lines must be positive", ErrInvalid)
	}
	return nil
}

// setDefaults задаёт значения по умолчанию. Каждый ключ должен быть здесь,
// иначе AutomaticEnv не попадёт в Unmarshal.
func setDefaults(v *viper.Viper) {
	exec := domain.DefaultExecutionConfig()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("execution.mode", string(exec.Mode))
	v.SetDefault("execution.method", string(exec.Method))
	v.SetDefault("execution.backend_url", exec.BackendURL)
	v.SetDefault("execution.container_name", exec.ContainerName)
	v.SetDefault("execution.run_timeout", 15*time.Minute)

	v.SetDefault("simulation.speed", 1.0)
	v.SetDefault("ledger.capacity", 500)
	v.SetDefault("logs.max_lines", 5000)
	v.SetDefault("library.seed_file", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Second)

	v.SetDefault("events.enabled", true)

	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.model", "")
	v.SetDefault("assistant.timeout", 60*time.Second)
}

// Source — загруженная конфигурация с поддержкой hot reload.
type Source struct {
	v      *viper.Viper
	logger *slog.Logger

	mu  sync.RWMutex
	cfg *Config
}

// Load читает конфигурацию.
//
// path — путь к YAML-файлу. Если пустой, ищется stagehand.yaml в текущей
// директории и в /etc/stagehand; отсутствие файла не ошибка.
// Переменные STAGEHAND_* перекрывают файл; API_PORT — синоним server.port.
func Load(path string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stagehand")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stagehand")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "API_PORT"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &Source{v: v, logger: logger, cfg: cfg}, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config возвращает текущую конфигурацию.
func (s *Source) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// File возвращает путь к прочитанному файлу ("" — файла нет).
func (s *Source) File() string {
	return s.v.ConfigFileUsed()
}

// Watch следит за файлом и вызывает onChange с новой конфигурацией.
// Некорректные изменения логируются и не применяются.
// Без файла ничего не делает.
func (s *Source) Watch(onChange func(*Config)) {
	if s.File() == "" {
		return
	}

	s.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(s.v)
		if err != nil {
			s.logger.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}

		s.mu.Lock()
		s.cfg = cfg
		s.mu.Unlock()

		s.logger.Info("config reloaded", "file", e.Name, "mode", cfg.Execution.Mode)
		if onChange != nil {
			onChange(cfg)
		}
	})
	s.v.WatchConfig()
}
