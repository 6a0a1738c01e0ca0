package artifact

import "errors"

var (
	// ErrUnknownOrigin — у записи неизвестный Origin.
	ErrUnknownOrigin = errors.New("unknown run origin")

	// ErrFetch — сервис выполнения не отдал артефакты.
	ErrFetch = errors.New("artifact fetch failed")
)
