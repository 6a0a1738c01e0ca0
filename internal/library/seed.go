package library

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Stagehand/internal/domain"
)

// Seed — начальное содержимое библиотеки.
//
//	environments:
//	  - id: env-local
//	    name: Local Dev
//	    url: http://localhost:3000
//	    active: true
//	    variables:
//	      - key: NODE_ENV
//	        value: development
//	features:
//	  - id: default-1
//	    content: |
//	      Feature: User Login
//	        ...
type Seed struct {
	Environments []domain.Environment `yaml:"environments"`
	Features     []SeedFeature        `yaml:"features"`
}

// SeedFeature — feature в seed-файле.
type SeedFeature struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Content   string `yaml:"content"`
	StepsCode string `yaml:"steps_code"`
}

// ParseSeed разбирает seed из YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// LoadSeed читает seed-файл. Если path пустой или файла нет,
// возвращается seed с окружением по умолчанию.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSeed(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}

	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	if len(seed.Environments) == 0 {
		seed.Environments = []domain.Environment{domain.DefaultEnvironment()}
	}
	return seed, nil
}

// DefaultSeed — одно окружение "Local Dev" и ни одного feature.
func DefaultSeed() *Seed {
	return &Seed{
		Environments: []domain.Environment{domain.DefaultEnvironment()},
	}
}

// Apply добавляет features из seed в хранилище.
// Уже существующие ID пропускаются, чтобы повторный старт с PostgreSQL не падал.
func (s *Seed) Apply(ctx context.Context, store FeatureStore) (int, error) {
	added := 0
	for _, sf := range s.Features {
		_, err := store.Add(ctx, domain.Feature{
			ID:        sf.ID,
			Title:     sf.Title,
			Content:   sf.Content,
			StepsCode: sf.StepsCode,
		})
		if err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return added, fmt.Errorf("seed feature %q: %w", sf.ID, err)
		}
		added++
	}
	return added, nil
}
