package events

import (
	"sync"
	"time"

	"vault/config"
)

// guessTracker applies the progressive cooldown to wrong solution guesses,
// per user. Separate from the IP rate limiter: this one only counts
// incorrect answers and escalates.
type guessTracker struct {
	mu    sync.Mutex
	cfg   config.GuessLimitConfig
	wrong map[string]int
	until map[string]time.Time
}

func newGuessTracker(cfg config.GuessLimitConfig) *guessTracker {
	return &guessTracker{
		cfg:   cfg,
		wrong: make(map[string]int),
		until: make(map[string]time.Time),
	}
}

// blockedFor returns the remaining cooldown for userID, zero when allowed
func (g *guessTracker) blockedFor(userID string, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	until, exists := g.until[userID]
	if !exists || now.After(until) {
		return 0
	}
	return until.Sub(now)
}

// recordWrong counts a wrong guess and starts a cooldown once a threshold
// is crossed
func (g *guessTracker) recordWrong(userID string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.wrong[userID]++
	switch {
	case g.wrong[userID] >= g.cfg.AttemptsThreshold2:
		g.until[userID] = now.Add(g.cfg.CooldownDuration2)
	case g.wrong[userID] >= g.cfg.AttemptsThreshold1:
		g.until[userID] = now.Add(g.cfg.CooldownDuration1)
	}
}

// reset clears the counter after a correct guess
func (g *guessTracker) reset(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.wrong, userID)
	delete(g.until, userID)
}
