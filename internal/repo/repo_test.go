package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(dup) {
		t.Error("wrapped 23505 should be a unique violation")
	}

	other := &pgconn.PgError{Code: "23503"}
	if isUniqueViolation(other) {
		t.Error("foreign key violation is not a unique violation")
	}

	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Error("plain errors are not unique violations")
	}
}

func TestNullString(t *testing.T) {
	if nullString("") != nil {
		t.Error("empty string should be NULL")
	}
	if p := nullString("x"); p == nil || *p != "x" {
		t.Errorf("expected pointer to x, got %v", p)
	}
	if derefString(nil) != "" || derefString(nullString("y")) != "y" {
		t.Error("derefString mismatch")
	}
}
