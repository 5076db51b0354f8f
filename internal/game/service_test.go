package game

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestStoreErrorTransientCodes(t *testing.T) {
	// Serialization failure, deadlock abort, lock unavailable, statement
	// timeout: all roll back with nothing committed, so a blind retry of
	// the identical request is safe.
	for _, code := range []string{"40001", "40P01", "55P03", "57014"} {
		err := storeError(&pgconn.PgError{Code: code})
		var domain *Error
		if !errors.As(err, &domain) {
			t.Fatalf("code %s: not a domain error", code)
		}
		if domain.Kind != KindTransientStore {
			t.Errorf("code %s: kind = %v, want KindTransientStore", code, domain.Kind)
		}
		if domain.Code != "store_conflict" {
			t.Errorf("code %s: code = %q, want store_conflict", code, domain.Code)
		}
	}
}

func TestStoreErrorHardFaults(t *testing.T) {
	for _, code := range []string{"23505", "23514", "42P01"} {
		err := storeError(&pgconn.PgError{Code: code})
		var domain *Error
		if !errors.As(err, &domain) {
			t.Fatalf("code %s: not a domain error", code)
		}
		if domain.Kind != KindInternal {
			t.Errorf("code %s: kind = %v, want KindInternal", code, domain.Kind)
		}
	}

	err := storeError(errors.New("connection refused"))
	var domain *Error
	if !errors.As(err, &domain) || domain.Kind != KindInternal {
		t.Fatal("plain errors must classify as internal")
	}
}
