// Package backend — клиент внешнего сервиса выполнения тестов.
//
// Endpoints сервиса:
//   - POST /api/run              — запуск, ответ идёт потоком text/plain
//   - GET  /api/artifacts/{id}   — артефакты запуска
//   - GET  /api/logs/stream      — поток логов контейнера
//   - GET  /health               — состояние сервиса
//
// Сам сервис (запись файлов, npx playwright, docker exec) живёт
// отдельно, здесь только HTTP.
package backend
