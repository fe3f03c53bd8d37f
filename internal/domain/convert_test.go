package domain_test

import (
	"math"
	"testing"

	"glucare/internal/domain"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestConvertGlucose(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
	}{
		{"mg/dL to mmol/L", 180.0, "mg/dL", "mmol/L", 9.99},
		{"mmol/L to mg/dL", 5.5, "mmol/L", "mg/dL", 99.1},
		{"same unit mg/dL", 95.0, "mg/dL", "mg/dL", 95.0},
		{"same unit mmol/L", 6.1, "mmol/L", "mmol/L", 6.1},
		{"unknown units", 50.0, "g/L", "mg/dL", 50.0},
		{"zero value", 0, "mg/dL", "mmol/L", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ConvertGlucose(tc.value, tc.from, tc.to)
			if !almostEqual(got, tc.want, 0.01) {
				t.Errorf("ConvertGlucose(%v, %q, %q) = %v; want %v",
					tc.value, tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestValidUnit(t *testing.T) {
	for _, u := range []string{"mg/dL", "mmol/L"} {
		if !domain.ValidUnit(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}
	if domain.ValidUnit("kg") {
		t.Error("expected kg to be rejected")
	}
}
