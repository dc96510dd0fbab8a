package domain

import (
	"math"
	"time"
)

// ElapsedMinutes is (now - start) in minutes; a start in the future counts as zero.
func ElapsedMinutes(start, now time.Time) float64 {
	if start.IsZero() {
		return 0
	}
	d := now.Sub(start)
	if d <= 0 {
		return 0
	}
	return float64(d.Milliseconds()) / 60000
}

// CompletionPercent maps elapsed time onto the scheduled duration, capped at 100.
func CompletionPercent(elapsed time.Duration, scheduledMinutes int) float64 {
	if scheduledMinutes <= 0 || elapsed <= 0 {
		return 0
	}
	pct := float64(elapsed.Milliseconds()) / float64(int64(scheduledMinutes)*60000) * 100
	return math.Min(pct, 100)
}
