package common

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Give the periodic executor a task and a period.
// Once started, the task runs every period until the executor is stopped.
// Runs never overlap: if the previous run is still going when the next one
// is due, the next one is skipped
type PeriodicExecutor struct {
	mu      sync.Mutex
	cron    *cron.Cron
	period  time.Duration
	running bool
}

// Create a periodic executor provided a period and a task
func NewPeriodicExecutor(period time.Duration, task func()) (*PeriodicExecutor, error) {
	if period < time.Second {
		return nil, fmt.Errorf("period %s is shorter than one second", period)
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", period), task); err != nil {
		return nil, fmt.Errorf("could not schedule task every %s: %w", period, err)
	}
	return &PeriodicExecutor{cron: c, period: period}, nil
}

// Start running the task. Calling Start on a running executor does nothing
func (pe *PeriodicExecutor) Start() {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	if pe.running {
		return
	}
	pe.running = true
	pe.cron.Start()
	log.Debug().Dur("period", pe.period).Msg("Periodic executor started")
}

// Stop the executor and wait for a run in progress to finish
func (pe *PeriodicExecutor) Stop() {
	pe.mu.Lock()
	if !pe.running {
		pe.mu.Unlock()
		return
	}
	pe.running = false
	pe.mu.Unlock()

	<-pe.cron.Stop().Done()
	log.Debug().Msg("Periodic executor stopped")
}

// cronLogger sends the scheduler's own messages to zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
