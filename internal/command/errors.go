package command

import "errors"

var (
	// ErrNotConfigured — сервис интерпретации не настроен.
	ErrNotConfigured = errors.New("assistant is not configured")

	// ErrEmptyCommand — пустой текст команды.
	ErrEmptyCommand = errors.New("empty command")
)
