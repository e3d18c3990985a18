package loadcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fixitall/intake/pkg/logger"
)

// workerChannelMultiplier sizes the job buffer relative to the worker count.
const workerChannelMultiplier = 2

// Run executes a complete load check against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Named("loadcheck")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("inputs", cfg.Inputs),
		logger.Int("workers", cfg.Workers))

	if err := client.healthy(ctx); err != nil {
		return stats, err
	}

	before, err := client.storedInputs(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading stored inputs: %w", err)
	}

	if err := submitInputs(ctx, client, cfg, stats); err != nil {
		return stats, err
	}

	after, err := client.storedInputs(ctx)
	if err != nil {
		return stats, fmt.Errorf("reading stored inputs: %w", err)
	}
	stats.StoredDelta = after - before

	if cfg.Category != "" {
		matched, err := client.providers(ctx, cfg.Category)
		if err != nil {
			return stats, fmt.Errorf("querying providers: %w", err)
		}
		stats.Providers = len(matched)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "load check finished",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("storedDelta", stats.StoredDelta),
		logger.Int("providers", stats.Providers),
		logger.Duration("duration", stats.Duration))

	// Other writers may append during the run, so only a shortfall is fatal.
	if stats.StoredDelta < stats.Accepted {
		return stats, fmt.Errorf("%w: accepted %d, store grew by %d", ErrLostInputs, stats.Accepted, stats.StoredDelta)
	}
	return stats, nil
}

// submitInputs posts cfg.Inputs distinct payloads through a worker pool.
func submitInputs(ctx context.Context, client *httpClient, cfg *Config, stats *Stats) error {
	var submitted, accepted, rejected, failed int64

	jobs := make(chan []byte, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for payload := range jobs {
				status, err := client.submit(ctx, payload)
				atomic.AddInt64(&submitted, 1)
				switch {
				case err != nil && status == 0:
					atomic.AddInt64(&failed, 1)
				case status == http.StatusOK && err == nil:
					atomic.AddInt64(&accepted, 1)
				case status >= 400 && status < 500:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	var genErr error
	runID := uuid.NewString()
feed:
	for i := 0; i < cfg.Inputs; i++ {
		payload, err := json.Marshal(map[string]any{
			"loadcheck": runID,
			"seq":       i,
			"sentAt":    time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			genErr = fmt.Errorf("failed to marshal input %d: %w", i, err)
			break
		}
		select {
		case <-ctx.Done():
			genErr = ctx.Err()
			break feed
		case jobs <- payload:
		}
	}
	close(jobs)
	wg.Wait()

	stats.Submitted = int(submitted)
	stats.Accepted = int(accepted)
	stats.Rejected = int(rejected)
	stats.Failed = int(failed)
	return genErr
}
