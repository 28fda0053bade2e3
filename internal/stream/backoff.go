package stream

import (
	"math/rand/v2"
	"time"
)

// backoff returns an exponential delay with full jitter, capped at max.
// attempt 0 draws from [0, base), attempt 1 from [0, 2*base), and so on.
func backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base << attempt
	if d > max || d <= 0 {
		d = max
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)))
}
