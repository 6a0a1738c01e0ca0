package runner

import "errors"

// Ошибки координатора и драйверов.
var (
	// ErrCoordinatorStopped — координатор остановлен, новые заявки не принимаются.
	ErrCoordinatorStopped = errors.New("coordinator stopped")

	// ErrUnknownMode — для режима выполнения не зарегистрирован драйвер.
	ErrUnknownMode = errors.New("unknown execution mode")

	// ErrEmptyRequest — заявка без feature.
	ErrEmptyRequest = errors.New("run request has no feature")
)
