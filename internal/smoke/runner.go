// Package smoke exercises every endpoint of a running server concurrently
// and verifies each response against the request that produced it.
package smoke

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/simplehttp/pkg/logger"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	percentageMultiplier    = 100
)

// job is one check in one round.
type job struct {
	round int
	check check
}

// Run executes cfg.Rounds rounds of every check across cfg.Workers workers.
// It returns the statistics and, when any check failed, an error wrapping
// ErrChecksFailed.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting smoke test",
		logger.String("baseURL", baseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.Timeout)

	var (
		passed   int64
		failed   int64
		mu       sync.Mutex
		failures []Failure
	)

	jobs := make(chan job, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				err := j.check.run(ctx, client, baseURL)
				if err == nil {
					atomic.AddInt64(&passed, 1)
					if cfg.Verbose {
						log.Debug(ctx, "check passed", logger.String("check", j.check.name), logger.Int("round", j.round))
					}
					continue
				}

				atomic.AddInt64(&failed, 1)
				log.Warn(ctx, "check failed", logger.String("check", j.check.name), logger.Int("round", j.round), logger.Error(err))
				mu.Lock()
				failures = append(failures, Failure{Check: j.check.name, Round: j.round, Err: err})
				mu.Unlock()
			}
		}()
	}

	// Send jobs to workers; stop early when ctx is cancelled.
	go func() {
		defer close(jobs)
		for round := 1; round <= cfg.Rounds; round++ {
			for _, c := range checks {
				select {
				case <-ctx.Done():
					return
				case jobs <- job{round: round, check: c}:
				}
			}
		}
	}()

	wg.Wait()

	stats.Passed = int(atomic.LoadInt64(&passed))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.Checks = stats.Passed + stats.Failed
	stats.Failures = failures
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("smoke test interrupted: %w", err)
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrChecksFailed, stats.Failed, stats.Checks)
	}
	log.Info(ctx, "smoke test completed successfully")
	return stats, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, checksPerSecond float64

	if stats.Checks > 0 {
		successRate = float64(stats.Passed) / float64(stats.Checks) * percentageMultiplier
	}
	if stats.Duration > 0 {
		checksPerSecond = float64(stats.Checks) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("checks", stats.Checks),
		logger.Int("passed", stats.Passed),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("checksPerSecond", checksPerSecond))
}
