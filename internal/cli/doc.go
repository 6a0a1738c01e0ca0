// Package cli реализует утилиту командной строки Stagehand.
//
// CLI работает с API только по HTTP и websocket и не импортирует
// внутренние пакеты: типы ответов продублированы в client.go.
//
// Client инкапсулирует запросы и разбор обёрток {"data": ...} и
// {"error": {...}}. Потоковые ответы (лог контейнера, архив артефактов)
// идут через отдельный http.Client без таймаута; живой лог запусков
// читается через websocket (FollowLogs).
//
// Output печатает таблицы через text/tabwriter или JSON (--json).
// Данные идут в stdout, сообщения в stderr, поэтому
//
//	stagehand runs list --json | jq '.[] | select(.status == "failed")'
//
// работает без фильтрации мусора.
//
// Команды сгруппированы по ресурсам (feature, env, config, queue, runs,
// logs, ask, backend, schedule). Каждая группа создаётся фабрикой NewXCmd,
// которая получает clientFn и outputFn: Client и Output создаются лениво,
// после разбора persistent flags.
package cli
