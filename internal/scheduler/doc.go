// Package scheduler ставит features в очередь по cron-расписанию.
//
// Каждый интервал Tick выбирает включённые schedules с наступившим
// next_due_at, ставит в очередь runner.Coordinator все features с тегом
// schedule (старые первыми) и сдвигает next_due_at. Если постановка не
// удалась, next_due_at не меняется и schedule сработает на следующем тике.
//
// Хранилище: MemoryStore или repo.ScheduleRepo при наличии DB_URL.
//
//	sched := scheduler.New(scheduler.Config{
//	    Store:    scheduler.NewMemoryStore(),
//	    Features: features,
//	    Queue:    coordinator,
//	})
//	go sched.Run(ctx)
package scheduler
