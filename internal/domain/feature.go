package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Feature — Gherkin feature с сгенерированным кодом шагов.
//
// После создания не изменяется. Владелец — библиотека features.
type Feature struct {
	// ID — идентификатор feature (например, "default-1" или UUID).
	ID string `json:"id"`

	// Title — название из строки "Feature:".
	Title string `json:"title"`

	// Content — исходный текст на Gherkin.
	Content string `json:"content"`

	// StepsCode — TypeScript-реализация шагов (может содержать несколько файлов).
	StepsCode string `json:"steps_code,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

var tagPattern = regexp.MustCompile(`@[\w-]+`)

// Tags возвращает уникальные теги feature в отсортированном порядке.
func (f *Feature) Tags() []string {
	return ExtractTags(f.Content)
}

// HasTag проверяет, помечен ли feature тегом. Пустой тег совпадает с любым feature.
func (f *Feature) HasTag(tag string) bool {
	tag = NormalizeTag(tag)
	if tag == "" {
		return true
	}
	for _, t := range f.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTag приводит тег к виду "@name": "smoke" и " @smoke " дают "@smoke".
// Пустой тег остаётся пустым.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.HasPrefix(tag, "@") {
		return tag
	}
	return "@" + tag
}

// NormalizeTags применяет NormalizeTag к каждому тегу и отбрасывает пустые.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = NormalizeTag(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ExtractTags находит все теги вида @tag в тексте.
func ExtractTags(content string) []string {
	matches := tagPattern.FindAllString(content, -1)
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		tags = append(tags, m)
	}
	sort.Strings(tags)
	return tags
}
