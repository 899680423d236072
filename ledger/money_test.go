package ledger_test

import (
	"testing"

	"github.com/warp/ledger-engine/ledger"
)

func TestParseMoney(t *testing.T) {
	m, err := ledger.ParseMoney("123.45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "123.45" {
		t.Errorf("got %s, want 123.45", m)
	}

	if _, err := ledger.ParseMoney("12a.00"); err == nil {
		t.Error("expected parse error for non-numeric input")
	}
}

func TestMustParseMoney_InvalidYieldsZero(t *testing.T) {
	if m := ledger.MustParseMoney("garbage"); !m.IsZero() {
		t.Errorf("got %s, want 0", m)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := ledger.NewMoneyFromInt(100)
	b := ledger.MustParseMoney("0.10")

	// Decimal arithmetic stays exact where float64 would drift.
	sum := a.Add(b).Sub(b)
	if !sum.Equal(a) {
		t.Errorf("add/sub round trip drifted: got %s", sum)
	}
	if !a.Neg().IsNegative() {
		t.Error("negated positive amount should be negative")
	}
	if !a.GreaterThan(b) || b.GreaterThan(a) {
		t.Error("comparison mismatch")
	}
}
