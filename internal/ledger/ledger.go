package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
)

const defaultCapacity = 500

// Ledger — журнал завершённых запусков.
//
// Хранит не более capacity последних записей в кольцевом буфере.
// List возвращает записи от новых к старым.
type Ledger struct {
	mu      sync.RWMutex
	records []domain.RunRecord
	head    int // индекс следующей записи
	size    int
}

// New создаёт журнал вместимостью capacity (default: 500).
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Ledger{records: make([]domain.RunRecord, capacity)}
}

// Append добавляет запись. При переполнении вытесняется самая старая.
func (l *Ledger) Append(rec domain.RunRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[l.head] = rec
	l.head = (l.head + 1) % len(l.records)
	if l.size < len(l.records) {
		l.size++
	}
}

// List возвращает до limit записей, начиная с offset, от новых к старым.
// limit <= 0 — все записи.
func (l *Ledger) List(limit, offset int) []domain.RunRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= l.size {
		return []domain.RunRecord{}
	}

	n := l.size - offset
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]domain.RunRecord, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, l.at(offset+i))
	}
	return result
}

// Get возвращает запись по ID.
func (l *Ledger) Get(id uuid.UUID) (domain.RunRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 0; i < l.size; i++ {
		if rec := l.at(i); rec.ID == id {
			return rec, nil
		}
	}
	return domain.RunRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// Len возвращает количество записей.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Capacity возвращает вместимость журнала.
func (l *Ledger) Capacity() int {
	return len(l.records)
}

// at возвращает i-ю запись, считая от самой новой. Вызывать под mu.
func (l *Ledger) at(i int) domain.RunRecord {
	idx := (l.head - 1 - i + 2*len(l.records)) % len(l.records)
	return l.records[idx]
}
