package lobbysync

import (
	"math"
	"time"
)

// pollDelay returns the wait before the next poll after failures consecutive
// failed polls. A multiplier of 1 keeps the interval fixed.
func pollDelay(interval, maxInterval time.Duration, multiplier float64, failures int) time.Duration {
	if interval <= 0 {
		return 0
	}
	if failures <= 0 || multiplier <= 1.0 {
		return interval
	}
	delay := float64(interval) * math.Pow(multiplier, float64(failures))
	if maxInterval > 0 && delay > float64(maxInterval) {
		delay = float64(maxInterval)
	}
	return time.Duration(delay)
}
