package library

import "errors"

var (
	// ErrNotFound — feature или окружение не найдены.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись с таким ID уже есть.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalid — входные данные некорректны.
	ErrInvalid = errors.New("invalid input")
)
