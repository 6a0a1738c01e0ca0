package domain

import (
	"regexp"
	"strings"
)

// EnvVar — переменная окружения, передаваемая в тестовый запуск.
type EnvVar struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Environment — целевое окружение для запусков.
//
// Активным одновременно может быть только одно окружение.
type Environment struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	URL       string   `json:"url" yaml:"url"`
	Active    bool     `json:"active" yaml:"active"`
	Variables []EnvVar `json:"variables" yaml:"variables"`
}

// Clone возвращает копию окружения с отдельным срезом переменных.
func (e Environment) Clone() Environment {
	vars := make([]EnvVar, len(e.Variables))
	copy(vars, e.Variables)
	e.Variables = vars
	return e
}

// DefaultEnvironment — окружение по умолчанию для локальной разработки.
func DefaultEnvironment() Environment {
	return Environment{
		ID:     "env-local",
		Name:   "Local Dev",
		URL:    "http://localhost:3000",
		Active: true,
		Variables: []EnvVar{
			{Key: "NODE_ENV", Value: "development"},
		},
	}
}

var sensitiveKeyPattern = regexp.MustCompile(`(?i)PASS|KEY|SECRET|TOKEN|CREDENTIAL|PWD|AUTH|SIGNATURE`)

// IsSensitiveKey проверяет, нужно ли маскировать значение переменной в логах.
func IsSensitiveKey(key string) bool {
	return sensitiveKeyPattern.MatchString(key)
}

// MaskValue маскирует значение для вывода в лог.
// Длинные значения сохраняют 4 первых и 2 последних символа.
func MaskValue(value string) string {
	runes := []rune(value)
	if len(runes) > 8 {
		return string(runes[:4]) + "..." + string(runes[len(runes)-2:])
	}
	return strings.Repeat("*", 8)
}

// DisplayValue возвращает значение переменной в том виде, в каком оно попадает в лог.
func (v EnvVar) DisplayValue() string {
	if IsSensitiveKey(v.Key) {
		return MaskValue(v.Value)
	}
	return v.Value
}
