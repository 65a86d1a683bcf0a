package alerting

import "time"

// DefaultCooldown is the minimum interval between two alert notifications
// for the same sensor when no explicit window is configured.
const DefaultCooldown = 30 * time.Minute

// ShouldAlert decides whether a reading warrants a notification.
// It fires only when the temperature is strictly above the threshold and
// either no alert was ever sent for the sensor or the cooldown window has
// fully elapsed since the last one. Boundary values do not trigger.
func ShouldAlert(currentTemp, threshold float64, lastAlertSent *time.Time, now time.Time, cooldown time.Duration) bool {
	if currentTemp <= threshold {
		return false
	}
	if lastAlertSent == nil {
		return true
	}
	return now.Sub(*lastAlertSent) > cooldown
}
