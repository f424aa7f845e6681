package common

import "time"

// A restriction means that only the specified number of requests
// are allowed for a specific time duration
type Restriction struct {
	Requests int           `koanf:"requests"`
	Duration time.Duration `koanf:"duration"`
}

// Analyse the recent history of requests and find out
// if a new request at the provided time should be allowed or not.
// History is expected in chronological order
func (rest Restriction) Analyse(history []time.Time, now time.Time) Analysis {

	// A restriction without a positive budget does not restrict anything
	if rest.Requests <= 0 {
		return Analysis{Allowed: true}
	}

	// Count the requests that happened inside my window.
	// Start counting from the end: if one request is too old, the rest will be too
	count := 0
	for i := len(history) - 1; i >= 0; i-- {
		if now.Sub(history[i]) >= rest.Duration {
			break
		}
		count++
	}

	if count < rest.Requests {
		return Analysis{Allowed: true}
	}

	// The oldest request still inside the window decides how long to wait
	oldest := history[len(history)-count]
	return Analysis{Allowed: false, Wait: oldest.Add(rest.Duration).Sub(now)}
}
