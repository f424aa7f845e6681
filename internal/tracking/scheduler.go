package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reactcheck/internal/common"
	"reactcheck/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Generator processes one expired record
type Generator interface {
	Generate(ctx context.Context, record Record) Outcome
}

// Scheduler looks for expired checks every period and hands them to the generator.
// Expiry fires once: every expired record leaves the registry after its tick,
// whatever the generator made of it
type Scheduler struct {
	registry  *Registry
	generator Generator
	clock     common.Clock
	period    time.Duration
	workers   int

	mu       sync.Mutex
	executor *common.PeriodicExecutor
}

func NewScheduler(registry *Registry, generator Generator, clock common.Clock, period time.Duration, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		registry:  registry,
		generator: generator,
		clock:     clock,
		period:    period,
		workers:   workers,
	}
}

// Start ticking. Only the first call starts anything, so it is safe to call
// from every gateway ready event
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.executor != nil {
		return nil
	}
	executor, err := common.NewPeriodicExecutor(s.period, func() {
		s.Tick(ctx, s.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("could not start the tracking scheduler: %w", err)
	}
	executor.Start()
	s.executor = executor
	log.Info().Dur("period", s.period).Msg("Tracking scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	executor := s.executor
	s.mu.Unlock()
	if executor != nil {
		executor.Stop()
	}
}

// Tick processes every record expired at now and returns the ids it completed
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	logger := log.With().Str("tick", uuid.NewString()).Logger()

	expired := []Record{}
	for _, record := range s.registry.Snapshot() {
		if record.Expired(now) {
			expired = append(expired, record)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	logger.Debug().Int("expired", len(expired)).Msg("Processing expired checks")

	p := pool.NewWithResults[string]().WithMaxGoroutines(s.workers)
	for _, record := range expired {
		p.Go(func() string {
			// A cancel may have landed since the snapshot
			if _, ok := s.registry.Get(record.MessageID); !ok {
				logger.Debug().Str("check", record.MessageID).Msg("Check was cancelled before it could be processed")
				return ""
			}

			outcome := OutcomeFailed
			var catcher panics.Catcher
			catcher.Try(func() {
				outcome = s.generator.Generate(ctx, record)
			})
			if recovered := catcher.Recovered(); recovered != nil {
				logger.Error().Err(recovered.AsError()).Str("check", record.MessageID).Msg("Error processing tracking for check")
				outcome = OutcomeFailed
			}
			metrics.ChecksExpired.WithLabelValues(outcome.String()).Inc()
			return record.MessageID
		})
	}

	completed := []string{}
	for _, messageID := range p.Wait() {
		if messageID == "" {
			continue
		}
		if s.registry.Remove(messageID) {
			logger.Info().Str("check", messageID).Msg("Completed tracking for check")
		}
		completed = append(completed, messageID)
	}
	metrics.ActiveChecks.Set(float64(s.registry.Len()))
	return completed
}
