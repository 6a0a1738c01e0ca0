// Package repo — хранилище в PostgreSQL (pgx).
//
// Подключается, только если задан DB_URL: без него сервис работает
// целиком в памяти. Таблицы создаются EnsureSchema при старте.
package repo
