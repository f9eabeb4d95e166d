package sync

import (
	"math"
	"math/rand"
	"time"

	"github.com/tablewire/posd/pkg/config"
)

// jitterFraction is the symmetric random spread applied to every delay so
// a fleet of clients does not retry in lockstep.
const jitterFraction = 0.10

// Delay computes the backoff for the given attempt: base * multiplier^attempt,
// capped at the configured maximum, with ±10% jitter.
func Delay(cfg config.SyncConfig, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(cfg.BackoffBase) * math.Pow(cfg.BackoffMultiplier, float64(attempt))
	ceiling := float64(cfg.BackoffMax)
	if delay > ceiling {
		delay = ceiling
	}
	jitter := (rand.Float64()*2 - 1) * jitterFraction * delay
	return time.Duration(delay + jitter)
}
