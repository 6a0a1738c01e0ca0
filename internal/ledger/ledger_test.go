package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
)

func record(title string) domain.RunRecord {
	return domain.RunRecord{ID: uuid.New(), FeatureTitle: title, Status: domain.RunStatusPassed}
}

func TestLedger_MostRecentFirst(t *testing.T) {
	l := New(10)
	l.Append(record("A"))
	l.Append(record("B"))
	l.Append(record("C"))

	got := l.List(0, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].FeatureTitle != "C" || got[1].FeatureTitle != "B" || got[2].FeatureTitle != "A" {
		t.Errorf("expected [C B A], got [%s %s %s]", got[0].FeatureTitle, got[1].FeatureTitle, got[2].FeatureTitle)
	}
}

func TestLedger_EvictsOldest(t *testing.T) {
	l := New(2)
	a, b, c := record("A"), record("B"), record("C")
	l.Append(a)
	l.Append(b)
	l.Append(c)

	if l.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", l.Len())
	}

	got := l.List(0, 0)
	if got[0].FeatureTitle != "C" || got[1].FeatureTitle != "B" {
		t.Errorf("expected [C B], got [%s %s]", got[0].FeatureTitle, got[1].FeatureTitle)
	}

	if _, err := l.Get(a.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("evicted record should not be found, got %v", err)
	}
	if rec, err := l.Get(c.ID); err != nil || rec.FeatureTitle != "C" {
		t.Errorf("expected record C, got %+v, %v", rec, err)
	}
}

func TestLedger_ListPagination(t *testing.T) {
	l := New(10)
	for _, title := range []string{"A", "B", "C", "D"} {
		l.Append(record(title))
	}

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{"first page", 2, 0, []string{"D", "C"}},
		{"second page", 2, 2, []string{"B", "A"}},
		{"offset past end", 2, 10, []string{}},
		{"limit over size", 10, 1, []string{"C", "B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.List(tt.limit, tt.offset)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d records, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i].FeatureTitle != tt.want[i] {
					t.Errorf("record %d: expected %s, got %s", i, tt.want[i], got[i].FeatureTitle)
				}
			}
		})
	}
}

func TestLedger_DefaultCapacity(t *testing.T) {
	l := New(0)
	if l.Capacity() != defaultCapacity {
		t.Errorf("expected capacity %d, got %d", defaultCapacity, l.Capacity())
	}
}
