package realtime

import (
	"math"
	"time"
)

// reconnectDelay returns base * 2^(attempt-1) for a 1-based attempt, clamped
// to ceiling when ceiling is positive.
func reconnectDelay(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if ceiling > 0 && delay > float64(ceiling) {
		return ceiling
	}
	return time.Duration(delay)
}
