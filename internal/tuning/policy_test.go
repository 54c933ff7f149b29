package tuning

import "testing"

func TestFixedAttemptPolicy(t *testing.T) {
	p := FixedAttemptPolicy{}
	if got := p.Attempts(4, 1, 10, 3); got != 4 {
		t.Fatalf("expected fixed attempts=4, got=%d", got)
	}
	if got := p.Attempts(-2, 1, 10, 3); got != 0 {
		t.Fatalf("expected negative attempts clamped to 0, got=%d", got)
	}
}

func TestLinearDecayAttemptPolicy(t *testing.T) {
	p := LinearDecayAttemptPolicy{MinAttempts: 1}
	if got := p.Attempts(4, 0, 4, 2); got != 4 {
		t.Fatalf("expected round0 attempts=4, got=%d", got)
	}
	if got := p.Attempts(4, 2, 4, 2); got != 2 {
		t.Fatalf("expected round2 attempts=2, got=%d", got)
	}
	if got := p.Attempts(4, 9, 4, 2); got != 1 {
		t.Fatalf("expected clamped attempts=1, got=%d", got)
	}
}

func TestDimensionScaledAttemptPolicy(t *testing.T) {
	p := DimensionScaledAttemptPolicy{Scale: 1.0, MinAttempts: 1}
	if got := p.Attempts(4, 0, 1, 10); got != 8 {
		t.Fatalf("expected scaled attempts=8, got=%d", got)
	}
	capped := DimensionScaledAttemptPolicy{Scale: 1.0, MaxAttempts: 5}
	if got := capped.Attempts(4, 0, 1, 10); got != 5 {
		t.Fatalf("expected capped attempts=5, got=%d", got)
	}
}

func TestPowerAttemptPolicy(t *testing.T) {
	if got := (PowerAttemptPolicy{Power: 2}).Attempts(1, 0, 1, 4); got != 26 {
		t.Fatalf("expected 10+4^2=26, got=%d", got)
	}
	if got := (PowerAttemptPolicy{Power: 3}).Attempts(1, 0, 1, 10); got != 110 {
		t.Fatalf("expected capped 110, got=%d", got)
	}
}

func TestAttemptPolicyFromConfig(t *testing.T) {
	for _, name := range []string{"", "fixed", "const", "linear_decay", "dimension_scaled", "scaled", "dimension_power", "power"} {
		if _, err := AttemptPolicyFromConfig(name, 1.5); err != nil {
			t.Fatalf("%q policy: %v", name, err)
		}
	}
	if _, err := AttemptPolicyFromConfig("unknown", 1); err == nil {
		t.Fatal("expected unknown policy error")
	}
}
