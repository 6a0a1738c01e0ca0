package backend

import "errors"

// Ошибки обращения к сервису выполнения.
var (
	// ErrRequest — запрос не удалось отправить или прочитать ответ.
	ErrRequest = errors.New("backend request failed")

	// ErrStatus — сервис ответил статусом вне 2xx.
	ErrStatus = errors.New("backend returned error status")

	// ErrNoStream — ответ на /api/run пришёл без тела.
	ErrNoStream = errors.New("backend returned no output stream")
)
