package logsink

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxLines  = 5000
	defaultSubBuffer = 256
)

// Separator — строка-разделитель, с которой начинается каждый запуск.
var Separator = strings.Repeat("-", 40)

// Line — одна строка лога.
type Line struct {
	// Seq — монотонный номер строки, начиная с 1.
	Seq uint64 `json:"seq"`

	// RunID — запуск, которому принадлежит строка. uuid.Nil для системных строк.
	RunID uuid.UUID `json:"run_id"`

	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Sink — упорядоченный буфер строк лога с подписчиками.
//
// Строки хранятся в порядке Append. При переполнении удаляются самые
// старые. Подписчики получают строки через буферизованный канал;
// если подписчик не успевает читать, он отключается (канал закрывается).
type Sink struct {
	mu       sync.Mutex
	lines    []Line
	maxLines int
	seq      uint64

	subs      map[int]chan Line
	nextSub   int
	subBuffer int
}

// Config — конфигурация Sink.
type Config struct {
	MaxLines         int // сколько строк хранить (default: 5000)
	SubscriberBuffer int // буфер канала подписчика (default: 256)
}

// New создаёт новый Sink.
func New(cfg Config) *Sink {
	maxLines := cfg.MaxLines
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}

	subBuffer := cfg.SubscriberBuffer
	if subBuffer <= 0 {
		subBuffer = defaultSubBuffer
	}

	return &Sink{
		maxLines:  maxLines,
		subs:      make(map[int]chan Line),
		subBuffer: subBuffer,
	}
}

// Append добавляет строку и рассылает её подписчикам.
func (s *Sink) Append(runID uuid.UUID, text string) Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	line := Line{Seq: s.seq, RunID: runID, Text: text, At: time.Now()}

	s.lines = append(s.lines, line)
	if over := len(s.lines) - s.maxLines; over > 0 {
		// Сдвигаем, чтобы не держать старый массив бесконечно
		s.lines = append(s.lines[:0:0], s.lines[over:]...)
	}

	for id, ch := range s.subs {
		select {
		case ch <- line:
		default:
			// Медленный подписчик — отключаем
			close(ch)
			delete(s.subs, id)
		}
	}

	return line
}

// Lines возвращает строки с Seq > since.
func (s *Sink) Lines(since uint64) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linesSince(since)
}

// RunLines возвращает строки конкретного запуска.
func (s *Sink) RunLines(runID uuid.UUID) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []Line
	for _, l := range s.lines {
		if l.RunID == runID {
			result = append(result, l)
		}
	}
	return result
}

// Subscribe возвращает историю строк с Seq > since и канал новых строк.
// История и канал не пересекаются и не имеют пропусков.
// cancel нужно вызвать, когда подписка больше не нужна.
func (s *Sink) Subscribe(since uint64) (history []Line, ch <-chan Line, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history = s.linesSince(since)

	c := make(chan Line, s.subBuffer)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = c

	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			close(sub)
			delete(s.subs, id)
		}
	}

	return history, c, cancel
}

// LastSeq возвращает номер последней добавленной строки.
func (s *Sink) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Len возвращает количество хранимых строк.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Subscribers возвращает количество активных подписчиков.
func (s *Sink) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Sink) linesSince(since uint64) []Line {
	result := make([]Line, 0)
	for _, l := range s.lines {
		if l.Seq > since {
			result = append(result, l)
		}
	}
	return result
}
