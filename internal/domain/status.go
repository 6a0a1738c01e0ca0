package domain

// RequestState — состояние заявки на запуск в очереди.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → COMPLETED
//	                 ↘ FAILED
//	       (или) → DISCARDED (очередь отменена до старта)
type RequestState string

const (
	// RequestQueued — заявка ждёт в очереди.
	RequestQueued RequestState = "QUEUED"

	// RequestRunning — заявка занимает слот выполнения.
	RequestRunning RequestState = "RUNNING"

	// RequestCompleted — выполнение завершилось, запись добавлена в журнал.
	RequestCompleted RequestState = "COMPLETED"

	// RequestFailed — выполнение завершилось ошибкой.
	RequestFailed RequestState = "FAILED"

	// RequestDiscarded — заявка снята с очереди через Cancel.
	RequestDiscarded RequestState = "DISCARDED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s RequestState) IsTerminal() bool {
	switch s {
	case RequestCompleted, RequestFailed, RequestDiscarded:
		return true
	default:
		return false
	}
}

// RunStatus — итог выполнения, сохраняемый в журнале.
type RunStatus string

const (
	RunStatusPassed RunStatus = "passed"
	RunStatusFailed RunStatus = "failed"
)

// Origin — источник записи о запуске.
//
// От него зависит, где искать артефакты: simulated-запуски
// описываются локально, real-запуски хранятся во внешнем сервисе.
type Origin string

const (
	OriginSimulated Origin = "simulated"
	OriginReal      Origin = "real"
)

// Valid проверяет, что Origin известен.
func (o Origin) Valid() bool {
	return o == OriginSimulated || o == OriginReal
}
