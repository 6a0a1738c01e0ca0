package featurefile

import "errors"

var (
	// ErrInvalid — текст не является корректным Gherkin.
	ErrInvalid = errors.New("invalid gherkin")

	// ErrNoFeature — в документе нет блока Feature.
	ErrNoFeature = errors.New("gherkin document has no feature")
)
