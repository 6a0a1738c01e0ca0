package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/ledger"
	"github.com/shaiso/Stagehand/internal/logsink"
	"github.com/shaiso/Stagehand/internal/telemetry"
)

const defaultRunTimeout = 15 * time.Minute

// EnvironmentSource отдаёт активное окружение.
type EnvironmentSource interface {
	Active() (domain.Environment, bool)
}

// Observer получает события жизненного цикла запусков.
//
// Вызывается синхронно из горутины запуска, поэтому реализация
// не должна блокироваться надолго. Реализации: метрики, публикация
// событий в RabbitMQ, архив в PostgreSQL.
type Observer interface {
	RunStarted(req domain.RunRequest, cfg domain.ExecutionConfig)

	// RunFinished вызывается после завершения. rec == nil для dry run.
	RunFinished(req domain.RunRequest, rec *domain.RunRecord)

	QueueChanged(pending int)
}

// Status — снимок состояния очереди и слота.
type Status struct {
	Active  *domain.RunRequest  `json:"active,omitempty"`
	Pending []domain.RunRequest `json:"pending"`
}

// Busy возвращает true, если слот занят.
func (s Status) Busy() bool {
	return s.Active != nil
}

// Coordinator — очередь запусков и единственный слот выполнения.
//
// Заявки выполняются строго по одной в порядке постановки. Когда слот
// освобождается, голова очереди сразу занимает его. Отменить можно
// только ожидающие заявки; текущий запуск доводится до конца.
type Coordinator struct {
	// Зависимости
	drivers   *Registry
	settings  *Settings
	envs      EnvironmentSource
	sink      *logsink.Sink
	ledger    *ledger.Ledger
	observers []Observer

	// Очередь и слот
	mu         sync.Mutex
	queue      []*domain.RunRequest
	active     *domain.RunRequest
	idle       chan struct{} // закрыт, когда слот свободен и очередь пуста
	idleClosed bool
	started    bool

	// Configuration
	runTimeout time.Duration

	// Lifecycle
	logger     *slog.Logger
	baseCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool // под mu
}

// Config — конфигурация Coordinator.
type Config struct {
	Drivers     *Registry
	Settings    *Settings
	Environment EnvironmentSource
	Sink        *logsink.Sink
	Ledger      *ledger.Ledger
	Observers   []Observer

	// RunTimeout ограничивает один запуск (default: 15m, < 0 — без ограничения).
	RunTimeout time.Duration

	Logger *slog.Logger
}

// New создаёт новый Coordinator.
func New(cfg Config) *Coordinator {
	runTimeout := cfg.RunTimeout
	if runTimeout == 0 {
		runTimeout = defaultRunTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	drivers := cfg.Drivers
	if drivers == nil {
		drivers = NewDefaultRegistry(SimulatedConfig{}, RealConfig{})
	}

	settings := cfg.Settings
	if settings == nil {
		settings = NewSettings(domain.DefaultExecutionConfig())
	}

	sink := cfg.Sink
	if sink == nil {
		sink = logsink.New(logsink.Config{})
	}

	led := cfg.Ledger
	if led == nil {
		led = ledger.New(0)
	}

	idle := make(chan struct{})
	close(idle)

	return &Coordinator{
		drivers:    drivers,
		settings:   settings,
		envs:       cfg.Environment,
		sink:       sink,
		ledger:     led,
		observers:  cfg.Observers,
		idle:       idle,
		idleClosed: true,
		runTimeout: runTimeout,
		logger:     logger,
		baseCtx:    context.Background(),
	}
}

// Start разрешает выполнение и сразу забирает заявки, поставленные до старта.
// Отмена ctx прерывает текущий запуск.
func (c *Coordinator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.baseCtx = ctx
	c.cancelFunc = cancel
	c.started = true

	c.logger.Info("coordinator started",
		"run_timeout", c.runTimeout,
		"pending", len(c.queue),
	)

	c.drainLocked()
	return nil
}

// Stop прерывает текущий запуск, отбрасывает очередь и ждёт завершения.
func (c *Coordinator) Stop() {
	c.logger.Info("stopping coordinator...")

	// После этой секции Enqueue и Run отказывают, а очередь пуста
	c.mu.Lock()
	c.stopped = true
	discarded := c.discardLocked()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if discarded > 0 {
		c.notifyQueue(0)
	}
	if cancel != nil {
		cancel()
	}

	c.wg.Wait()

	c.logger.Info("coordinator stopped", "discarded", discarded)
}

// IsStopped проверяет, остановлен ли координатор.
func (c *Coordinator) IsStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Enqueue ставит заявки в конец очереди в переданном порядке.
// Дубликаты допускаются.
func (c *Coordinator) Enqueue(reqs ...*domain.RunRequest) error {
	for _, req := range reqs {
		if req == nil || req.Feature.ID == "" {
			return ErrEmptyRequest
		}
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrCoordinatorStopped
	}
	if len(reqs) == 0 {
		c.mu.Unlock()
		return nil
	}
	for _, req := range reqs {
		req.State = domain.RequestQueued
		c.queue = append(c.queue, req)
	}
	c.markBusyLocked()
	pending := len(c.queue)
	c.mu.Unlock()

	c.logger.Info("runs enqueued", "count", len(reqs), "pending", pending)
	c.notifyQueue(pending)

	c.mu.Lock()
	c.drainLocked()
	c.mu.Unlock()

	return nil
}

// Cancel снимает с очереди все ожидающие заявки и возвращает их количество.
// Текущий запуск не затрагивается.
func (c *Coordinator) Cancel() int {
	c.mu.Lock()
	discarded := c.discardLocked()
	c.mu.Unlock()

	if discarded > 0 {
		c.logger.Info("queue cancelled", "discarded", discarded)
		c.notifyQueue(0)
	}
	return discarded
}

// discardLocked снимает все ожидающие заявки. Вызывать под mu.
func (c *Coordinator) discardLocked() int {
	discarded := len(c.queue)
	for _, req := range c.queue {
		req.MarkDiscarded()
	}
	c.queue = nil
	c.markIdleIfDoneLocked()
	return discarded
}

// Run запускает заявку напрямую, минуя очередь.
//
// Если слот занят (или координатор не запущен), заявка молча
// игнорируется и возвращается false.
func (c *Coordinator) Run(req *domain.RunRequest) bool {
	if req == nil || req.Feature.ID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return false
	}
	if !c.started || c.active != nil {
		c.logger.Debug("direct run ignored, slot busy", "feature_id", req.Feature.ID)
		return false
	}

	c.markBusyLocked()
	c.startLocked(req)
	return true
}

// Status возвращает снимок очереди и слота.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{Pending: make([]domain.RunRequest, len(c.queue))}
	if c.active != nil {
		active := *c.active
		st.Active = &active
	}
	for i, req := range c.queue {
		st.Pending[i] = *req
	}
	return st
}

// WaitIdle блокируется, пока слот не освободится и очередь не опустеет.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sink возвращает лог запусков.
func (c *Coordinator) Sink() *logsink.Sink {
	return c.sink
}

// Ledger возвращает журнал запусков.
func (c *Coordinator) Ledger() *ledger.Ledger {
	return c.ledger
}

// Settings возвращает настройки выполнения.
func (c *Coordinator) Settings() *Settings {
	return c.settings
}

// drainLocked занимает свободный слот головой очереди. Вызывать под mu.
func (c *Coordinator) drainLocked() {
	if !c.started || c.stopped || c.active != nil || len(c.queue) == 0 {
		return
	}

	next := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]

	c.startLocked(next)
}

// startLocked занимает слот и запускает выполнение в отдельной горутине.
func (c *Coordinator) startLocked(req *domain.RunRequest) {
	req.MarkRunning()
	c.active = req

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.runTimeout > 0 {
		ctx, cancel = context.WithTimeout(c.baseCtx, c.runTimeout)
	} else {
		ctx, cancel = context.WithCancel(c.baseCtx)
	}

	pending := len(c.queue)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.notifyQueue(pending)
		c.execute(ctx, req)
	}()
}

// execute выполняет заявку. Слот освобождается в любом случае.
func (c *Coordinator) execute(ctx context.Context, req *domain.RunRequest) {
	cfg := c.settings.Get()
	env := c.activeEnvironment()
	logger := telemetry.ForRun(c.logger, req.ID.String(), req.Feature.ID).With("mode", cfg.Mode)
	ctx = telemetry.WithLogger(ctx, logger)

	var rec *domain.RunRecord
	defer func() {
		if p := recover(); p != nil {
			logger.Error("run panicked", "panic", p)
			c.emit(req.ID, fmt.Sprintf("[System] Execution failed: %v", p))
			rec = failedRecord(req, cfg)
			c.ledger.Append(*rec)
		}
		c.finish(req, rec)
	}()

	c.notifyStarted(*req, cfg)

	if req.DryRun {
		c.emit(req.ID, fmt.Sprintf("> Dry run: execution plan validated for %s", req.Feature.Title))
		logger.Info("dry run validated")
		return
	}

	logger.Info("run started", "title", req.Feature.Title)
	c.writePreamble(req, env)

	outcome, err := c.drive(ctx, req, cfg, env)
	if err != nil {
		logger.Warn("run failed", "error", err)
		c.emit(req.ID, fmt.Sprintf("[System] Execution failed: %v", err))
		rec = failedRecord(req, cfg)
	} else {
		rec = &domain.RunRecord{
			ID:           req.ID,
			Origin:       cfg.Origin(),
			FeatureID:    req.Feature.ID,
			FeatureTitle: req.Feature.Title,
			Status:       outcome.Status,
			Duration:     outcome.Duration,
			Screenshots:  outcome.Screenshots,
			Timestamp:    time.Now(),
		}
		logger.Info("run finished", "status", rec.Status, "duration", rec.Duration)
	}

	c.ledger.Append(*rec)
}

func (c *Coordinator) drive(ctx context.Context, req *domain.RunRequest, cfg domain.ExecutionConfig, env domain.Environment) (Outcome, error) {
	driver, err := c.drivers.Get(cfg.Mode)
	if err != nil {
		return Outcome{}, err
	}

	return driver.Execute(ctx, Execution{
		Request:     req,
		Config:      cfg,
		Environment: env,
		Emit:        func(line string) { c.emit(req.ID, line) },
	})
}

// finish уведомляет наблюдателей, освобождает слот и запускает следующую заявку.
func (c *Coordinator) finish(req *domain.RunRequest, rec *domain.RunRecord) {
	c.mu.Lock()
	if rec != nil {
		req.MarkFinished(rec.Status)
	} else {
		req.State = domain.RequestCompleted
	}
	snapshot := *req
	c.mu.Unlock()

	c.notifyFinished(snapshot, rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = nil
	c.drainLocked()
	c.markIdleIfDoneLocked()
}

// writePreamble пишет общий для всех режимов заголовок запуска.
func (c *Coordinator) writePreamble(req *domain.RunRequest, env domain.Environment) {
	c.emit(req.ID, logsink.Separator)
	c.emit(req.ID, fmt.Sprintf("> Initializing Playwright runner for: %s...", req.Feature.Title))
	c.emit(req.ID, fmt.Sprintf("> Target Environment: %s (%s)", env.Name, env.URL))

	if len(env.Variables) == 0 {
		return
	}

	c.emit(req.ID, "> Injecting Environment Variables:")
	for _, v := range env.Variables {
		c.emit(req.ID, fmt.Sprintf("  - %s: %s", v.Key, v.DisplayValue()))
	}
}

func (c *Coordinator) activeEnvironment() domain.Environment {
	if c.envs != nil {
		if env, ok := c.envs.Active(); ok {
			return env
		}
	}

	// Без активного окружения — только имя и адрес по умолчанию
	def := domain.DefaultEnvironment()
	return domain.Environment{Name: def.Name, URL: def.URL}
}

func (c *Coordinator) emit(runID uuid.UUID, line string) {
	c.sink.Append(runID, line)
}

// markBusyLocked открывает новый idle-канал, если предыдущий закрыт.
func (c *Coordinator) markBusyLocked() {
	if c.idleClosed {
		c.idle = make(chan struct{})
		c.idleClosed = false
	}
}

// markIdleIfDoneLocked закрывает idle-канал, если работы не осталось.
func (c *Coordinator) markIdleIfDoneLocked() {
	if c.active == nil && len(c.queue) == 0 && !c.idleClosed {
		close(c.idle)
		c.idleClosed = true
	}
}

func (c *Coordinator) notifyStarted(req domain.RunRequest, cfg domain.ExecutionConfig) {
	for _, o := range c.observers {
		o.RunStarted(req, cfg)
	}
}

func (c *Coordinator) notifyFinished(req domain.RunRequest, rec *domain.RunRecord) {
	for _, o := range c.observers {
		o.RunFinished(req, rec)
	}
}

func (c *Coordinator) notifyQueue(pending int) {
	for _, o := range c.observers {
		o.QueueChanged(pending)
	}
}

func failedRecord(req *domain.RunRequest, cfg domain.ExecutionConfig) *domain.RunRecord {
	return &domain.RunRecord{
		ID:           req.ID,
		Origin:       cfg.Origin(),
		FeatureID:    req.Feature.ID,
		FeatureTitle: req.Feature.Title,
		Status:       domain.RunStatusFailed,
		Duration:     0,
		Timestamp:    time.Now(),
	}
}
