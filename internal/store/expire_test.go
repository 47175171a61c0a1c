package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func TestExpirer_Expire_ClosesStaleLoadBalancersInOneStatement(t *testing.T) {
	mock, adapter := setupMockDB(t)
	e := NewExpirer(adapter, 7)

	mock.ExpectExec(`UPDATE loadbalancer SET deleted = now\(\) WHERE deleted = 'infinity' AND created < now\(\) - \(\$1 \|\| ' days'\)::interval`).
		WithArgs(7).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	if err := e.Expire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestNewExpirer_NonPositiveDaysDefaultsToOne(t *testing.T) {
	_, adapter := setupMockDB(t)
	e := NewExpirer(adapter, 0)
	if e.days != 1 {
		t.Errorf("days = %d, want 1", e.days)
	}
	e = NewExpirer(adapter, -5)
	if e.days != 1 {
		t.Errorf("days = %d, want 1", e.days)
	}
}
