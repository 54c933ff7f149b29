package nondim

import (
	"errors"
	"math"
	"testing"
)

func testScales(t *testing.T) Scales {
	t.Helper()
	s, err := DeriveScales(Inputs{ScanRate: -0.08941, Temperature: 297, Area: 0.07, Diffusion: 7.2e-6, Concentration: 1e-6, Reversed: true})
	if err != nil {
		t.Fatalf("derive scales: %v", err)
	}
	return s
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		rate Kind
		want Rule
	}{
		{"Estart", DiffusiveRate, Rule{Kind: Potential}},
		{"E21", InverseTime, Rule{Kind: Potential}},
		{"dE", InverseTime, Rule{Kind: Potential}},
		{"k0", DiffusiveRate, Rule{Kind: DiffusiveRate}},
		{"k12", InverseTime, Rule{Kind: InverseTime}},
		{"omega", InverseTime, Rule{Kind: AngularFrequency}},
		{"phase", InverseTime, Rule{Kind: Identity}},
		{"alpha22", InverseTime, Rule{Kind: Identity}},
		{"gamma", InverseTime, Rule{Kind: Identity}},
		{"Ru", InverseTime, Rule{Kind: Resistance}},
		{"Cdl", InverseTime, Rule{Kind: Capacitance}},
		{"CdlE2", InverseTime, Rule{Kind: CapacitancePoly, Order: 2}},
	}
	for _, tc := range cases {
		got, ok := Classify(tc.name, tc.rate)
		if !ok {
			t.Fatalf("expected %s to classify", tc.name)
		}
		if got != tc.want {
			t.Fatalf("%s: got=%+v want=%+v", tc.name, got, tc.want)
		}
	}
	if _, ok := Classify("Nx", InverseTime); ok {
		t.Fatal("expected mesh setting to be unclassified")
	}
}

func TestNewRuleTableRejectsUnknownName(t *testing.T) {
	_, err := NewRuleTable(InverseTime, "Estart", "bogus")
	if !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected ErrUnknownParameter, got %v", err)
	}
	var perr *ParameterError
	if !errors.As(err, &perr) || perr.Name != "bogus" {
		t.Fatalf("expected parameter error naming bogus, got %v", err)
	}
}

func assertScalerRoundTrip(t *testing.T, rate Kind, names []string) {
	t.Helper()
	table, err := NewRuleTable(rate, names...)
	if err != nil {
		t.Fatalf("rule table: %v", err)
	}
	scaler, err := NewScaler(table, testScales(t), 0.07, 7.2e-6)
	if err != nil {
		t.Fatalf("scaler: %v", err)
	}

	values := []float64{0.5, -0.1, 1e-14, -1e-14, 0, 9.0152, -3.75, 1e7}
	for _, name := range names {
		for _, x := range values {
			nd, err := scaler.NonDimensionalise(x, name)
			if err != nil {
				t.Fatalf("non-dimensionalise %s: %v", name, err)
			}
			back, err := scaler.Dimensionalise(nd, name)
			if err != nil {
				t.Fatalf("dimensionalise %s: %v", name, err)
			}
			if math.Abs(back-x) > 1e-12*math.Abs(x) {
				t.Fatalf("round trip %s(%g) under %s: got %g", name, x, rate, back)
			}
		}
	}
}

func TestScalerRoundTrip(t *testing.T) {
	assertScalerRoundTrip(t, DiffusiveRate,
		[]string{"Estart", "Ereverse", "omega", "phase", "dE", "k0", "alpha", "E0", "Ru", "Cdl"})
}

func TestScalerRoundTripSequentialNames(t *testing.T) {
	assertScalerRoundTrip(t, InverseTime, []string{
		"Estart", "Ereverse", "omega", "phase", "dE", "Ru", "Cdl",
		"E01", "E02", "E21", "k01", "k02", "k11", "k22", "alpha1", "alpha22",
		"CdlE", "CdlE2", "CdlE3", "gamma",
	})
}

func TestScalerForwardRules(t *testing.T) {
	s := testScales(t)
	table, err := NewRuleTable(DiffusiveRate, "Estart", "omega", "k0", "Ru", "Cdl")
	if err != nil {
		t.Fatalf("rule table: %v", err)
	}
	scaler, err := NewScaler(table, s, 0.07, 7.2e-6)
	if err != nil {
		t.Fatalf("scaler: %v", err)
	}

	check := func(name string, x, want float64) {
		t.Helper()
		got, err := scaler.NonDimensionalise(x, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !closeRel(got, want) {
			t.Fatalf("%s: got=%g want=%g", name, got, want)
		}
	}
	check("Estart", 0.5, 0.5/s.E0)
	check("omega", 9.0152, 2*math.Pi*9.0152*s.T0)
	check("k0", 0.0101, 0.0101*s.L0/7.2e-6)
	check("Ru", 8, 8*math.Abs(s.I0)/s.E0)
	check("Cdl", 2e-5, 2e-5*0.07*s.E0/(math.Abs(s.I0)*s.T0))
}

func TestScalerUnknownNameFailsLoudly(t *testing.T) {
	table, err := NewRuleTable(InverseTime, "Estart")
	if err != nil {
		t.Fatalf("rule table: %v", err)
	}
	scaler, err := NewScaler(table, testScales(t), 0.07, 0)
	if err != nil {
		t.Fatalf("scaler: %v", err)
	}
	if _, err := scaler.NonDimensionalise(1, "k0"); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected ErrUnknownParameter, got %v", err)
	}
	if _, err := scaler.Dimensionalise(1, "k0"); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected ErrUnknownParameter, got %v", err)
	}
}
