// Package runner выполняет features по одному за раз.
//
// # Обзор
//
// Coordinator держит FIFO-очередь заявок (domain.RunRequest) и
// единственный слот выполнения. Пока слот занят, очередь ждёт; когда
// слот освобождается, голова очереди занимает его сразу же.
//
//	Enqueue(A, B) → [A, B] → A RUNNING → запись A → B RUNNING → запись B
//
// Cancel снимает ожидающие заявки (они переходят в DISCARDED), текущий
// запуск доводится до конца. Run — прямой запуск без очереди: если
// слот занят, заявка молча игнорируется.
//
// # Драйверы
//
// Режим выполнения (ExecutionConfig.Mode) выбирает драйвер из Registry:
//   - SimulatedDriver — проигрывает сценарий лога по таймингам
//   - RealDriver      — POST /api/run во внешний сервис и построчное
//     чтение потока вывода
//
// Перед драйвером координатор пишет общий заголовок: разделитель,
// feature, окружение и его переменные (чувствительные значения
// маскируются). Dry run пишет одну строку, не создаёт запись журнала
// и сразу освобождает слот.
//
// # Ошибки
//
// Ошибка драйвера не выходит наружу: в лог пишется строка
// "[System] Execution failed: ...", в журнал — failed-запись с нулевой
// длительностью, слот освобождается.
//
// # Наблюдатели
//
// Observer получает RunStarted / RunFinished / QueueChanged синхронно
// из горутины запуска. Так подключаются метрики, события RabbitMQ и
// архив в PostgreSQL.
package runner
