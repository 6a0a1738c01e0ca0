// Package telemetry собирает логирование и метрики сервиса.
//
// logging.go настраивает slog (LOG_LEVEL, LOG_FORMAT) и кладёт логгер
// запуска в context, чтобы драйверы писали с run_id и feature_id.
// metrics.go — Prometheus-метрики запусков, очереди и HTTP API;
// Metrics подключается к runner.Coordinator как наблюдатель.
package telemetry
