package alerting

import (
	"testing"
	"time"
)

func TestShouldAlert_NoPreviousAlert(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		temp      float64
		threshold float64
		want      bool
	}{
		{"above threshold", 25.5, 20, true},
		{"below threshold", 15, 20, false},
		{"exactly at threshold", 20, 20, false},
		{"negative threshold exceeded", -5, -10, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldAlert(tc.temp, tc.threshold, nil, now, DefaultCooldown)
			if got != tc.want {
				t.Fatalf("ShouldAlert(%v, %v, nil) = %v, want %v", tc.temp, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestShouldAlert_WithinCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-10 * time.Minute)

	if ShouldAlert(99, 20, &last, now, 30*time.Minute) {
		t.Fatal("expected suppression inside cooldown window regardless of temperature")
	}
}

func TestShouldAlert_CooldownBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Minute)

	// Elapsed time equal to the window does not fire; strictly greater does.
	if ShouldAlert(25, 20, &last, now, 30*time.Minute) {
		t.Fatal("expected suppression when elapsed equals cooldown")
	}
	last = now.Add(-30*time.Minute - time.Second)
	if !ShouldAlert(25, 20, &last, now, 30*time.Minute) {
		t.Fatal("expected alert once cooldown has fully elapsed")
	}
}

func TestShouldAlert_CooldownExpiredBelowThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-2 * time.Hour)

	if ShouldAlert(15, 20, &last, now, 30*time.Minute) {
		t.Fatal("expected no alert below threshold even with expired cooldown")
	}
}
