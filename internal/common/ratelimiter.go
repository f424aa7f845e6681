package common

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Analysis struct {
	Allowed bool          // If the request is allowed
	Wait    time.Duration // The minimal time to wait before the request is allowed
}

// RateLimiter keeps a history of requests per key and allows a new one
// only when every restriction agrees. Keys are independent of each other
type RateLimiter struct {
	mu           sync.Mutex
	restrictions []Restriction         // Restrictions to consider
	history      map[string][]time.Time // History of allowed requests per key
	duration     time.Duration          // Longest restriction window
	clock        Clock
}

func NewRateLimiter(restrictions []Restriction, clock Clock) *RateLimiter {
	rl := &RateLimiter{
		restrictions: append([]Restriction(nil), restrictions...),
		history:      map[string][]time.Time{},
		clock:        clock,
	}
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	return rl
}

// Decide if a request for the given key is allowed right now.
// Allowed requests are recorded in the history of the key
func (rl *RateLimiter) Allow(key string) Analysis {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	requestID := uuid.New()
	now := rl.clock.Now()
	rl.trim(key, now)

	analysis := rl.analyse(rl.history[key], now)
	if !analysis.Allowed {
		log.Debug().
			Str("request", requestID.String()).
			Str("key", key).
			Dur("wait", analysis.Wait).
			Msg("Rejecting request because restrictions do not allow it")
		return analysis
	}

	log.Debug().Str("request", requestID.String()).Str("key", key).Msg("Allowing request")
	rl.history[key] = append(rl.history[key], now)
	return analysis
}

// Trim the history of a key, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim(key string, now time.Time) {
	history := rl.history[key]
	index := 0
	for i := len(history) - 1; i >= 0; i-- {
		if now.Sub(history[i]) >= rl.duration {
			index = i + 1
			break
		}
	}
	if index == len(history) {
		delete(rl.history, key)
		return
	}
	rl.history[key] = history[index:]
}

func (rl *RateLimiter) analyse(history []time.Time, now time.Time) Analysis {

	// Merge the analyses of every restriction
	result := Analysis{Allowed: true}
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(history, now)
		result.Allowed = result.Allowed && analysis.Allowed
		if analysis.Wait > result.Wait {
			result.Wait = analysis.Wait
		}
	}
	return result
}
