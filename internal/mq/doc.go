// Package mq связывает Stagehand с RabbitMQ.
//
// Топология:
//
//	stagehand.runs (topic)
//	├── runs.requested  [run.requested]  заявки внешних систем, DLQ: dlq.runs
//	├── [run.started]   события запусков, очереди создают подписчики
//	└── [run.finished]
//
//	stagehand.dlq (direct)
//	└── dlq.runs        [runs]           разбираются вручную
//
// Connection переподключается сам; Consumer после восстановления
// подписывается заново. EventObserver подключается к runner.Coordinator
// и публикует события, NewRunRequestHandler превращает заявки
// в RunRequest и ставит их в очередь.
//
// RabbitMQ необязателен: без него сервис работает только через HTTP API.
package mq
