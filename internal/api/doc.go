// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go             — Handler с DI (библиотека, координатор, scheduler, logger)
//   - routes.go              — регистрация маршрутов
//   - middleware.go          — middleware (logging, recovery, CORS, metrics)
//   - response.go            — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                 — Data Transfer Objects (request/response)
//   - feature_handler.go     — обработчики для /features и /tags
//   - environment_handler.go — обработчики для /environments
//   - run_handler.go         — /config, /queue, /runs, артефакты и архив
//   - log_handler.go         — /logs и websocket-поток лога
//   - command_handler.go     — /command и /backend
//   - schedule_handler.go    — обработчики для /schedules
//
// API управляет библиотекой features, очередью запусков и журналом.
package api
