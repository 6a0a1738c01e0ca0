package featurefile

import (
	"fmt"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/google/uuid"

	"github.com/shaiso/Stagehand/internal/domain"
)

// Summary — то, что удалось извлечь из Gherkin-документа.
type Summary struct {
	// Title — имя из строки "Feature:".
	Title string `json:"title"`

	// Language — язык документа ("en" по умолчанию).
	Language string `json:"language"`

	// Tags — теги feature и всех сценариев, без повторов.
	Tags []string `json:"tags"`

	// Scenarios — имена сценариев в порядке объявления, включая сценарии внутри Rule.
	Scenarios []string `json:"scenarios"`
}

// Parse разбирает Gherkin-текст.
//
// Возвращает ErrInvalid, если текст не разбирается парсером,
// и ErrNoFeature, если в документе нет блока Feature.
func Parse(content string) (*Summary, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalid)
	}

	doc, err := gherkin.ParseGherkinDocument(strings.NewReader(content), uuid.NewString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc.Feature == nil {
		return nil, ErrNoFeature
	}

	f := doc.Feature
	s := &Summary{
		Title:     strings.TrimSpace(f.Name),
		Language:  f.Language,
		Scenarios: make([]string, 0, len(f.Children)),
	}

	// Теги берём тем же правилом, что и domain.Feature.Tags,
	// чтобы фильтр очереди и ответ парсера совпадали.
	var tagText strings.Builder
	writeTags(&tagText, f.Tags)

	for _, child := range f.Children {
		if child.Scenario != nil {
			s.Scenarios = append(s.Scenarios, child.Scenario.Name)
			writeTags(&tagText, child.Scenario.Tags)
		}
		if child.Rule != nil {
			writeTags(&tagText, child.Rule.Tags)
			for _, rc := range child.Rule.Children {
				if rc.Scenario != nil {
					s.Scenarios = append(s.Scenarios, rc.Scenario.Name)
					writeTags(&tagText, rc.Scenario.Tags)
				}
			}
		}
	}
	s.Tags = domain.ExtractTags(tagText.String())

	return s, nil
}

// Title возвращает имя feature или ошибку разбора.
func Title(content string) (string, error) {
	s, err := Parse(content)
	if err != nil {
		return "", err
	}
	if s.Title == "" {
		return "", fmt.Errorf("%w: feature has no name", ErrInvalid)
	}
	return s.Title, nil
}

func writeTags(b *strings.Builder, tags []*messages.Tag) {
	for _, t := range tags {
		b.WriteString(t.Name)
		b.WriteByte(' ')
	}
}
