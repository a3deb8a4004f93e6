package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rohanthewiz/logger"

	"storagesync/errkind"
	"storagesync/localstore"
	"storagesync/orchestrator"
)

// maxBackoff caps the exponential backoff between retries when the hub is
// down for an extended period, same cap the teacher uses for its own sync
// client (models/sync_client.go).
const maxBackoff = 5 * time.Minute

// scheduler runs orchestrator.Sync on a timer, backing off exponentially on
// RetryLater dispositions. Grounded in the teacher's SyncClient (single
// goroutine + mutex, atomic status fields, consecutiveFailures counter);
// adapted to drive this repository's orchestrator instead of the teacher's
// hub/spoke protocol.
type scheduler struct {
	deps     orchestrator.Deps
	store    *localstore.DuckStore
	interval time.Duration

	mu                  sync.Mutex
	consecutiveFailures int
	lastSync            time.Time
	lastErr             error
	lastOutcome         orchestrator.Outcome
	inProgress          atomic.Bool
}

func newScheduler(deps orchestrator.Deps, store *localstore.DuckStore, interval time.Duration) *scheduler {
	return &scheduler{deps: deps, store: store, interval: interval}
}

// run drives the sync loop until ctx is cancelled, mirroring the teacher's
// syncLoop: an immediate first cycle, then a ticker with backoff applied
// by skipping ticks until the backoff window has elapsed.
func (s *scheduler) run(ctx context.Context) {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			failures := s.consecutiveFailures
			lastSync := s.lastSync
			s.mu.Unlock()

			if failures > 0 && time.Since(lastSync) < s.calculateBackoff(failures) {
				continue
			}
			s.runCycle(ctx)
		}
	}
}

func (s *scheduler) runCycle(ctx context.Context) {
	s.inProgress.Store(true)
	defer s.inProgress.Store(false)

	outcome, err := orchestrator.Sync(ctx, s.deps)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSync = time.Now()
	if err != nil {
		s.consecutiveFailures++
		s.lastErr = err
		disp := errkind.Classify(err)
		if disp == errkind.DispositionFatal {
			logger.LogErr(err, "sync cycle hit a fatal error", "consecutive_failures", s.consecutiveFailures)
		} else {
			logger.Warn("sync cycle did not complete", "disposition", disp.String(), "consecutive_failures", s.consecutiveFailures, "error", err.Error())
		}
		return
	}

	s.consecutiveFailures = 0
	s.lastErr = nil
	s.lastOutcome = outcome
	if outcome.ForcePush != nil {
		logger.Warn("storagesync: force-push requested", "account", outcome.ForcePush.AccountKey, "reason", outcome.ForcePush.Reason)
	}
}

func (s *scheduler) calculateBackoff(failures int) time.Duration {
	backoff := time.Second
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff > maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// status is a snapshot for the HTML status page.
type status struct {
	InProgress          bool
	LastSync            time.Time
	LastErr             error
	ConsecutiveFailures int
	LastOutcome         orchestrator.Outcome
}

func (s *scheduler) status() status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return status{
		InProgress:          s.inProgress.Load(),
		LastSync:            s.lastSync,
		LastErr:             s.lastErr,
		ConsecutiveFailures: s.consecutiveFailures,
		LastOutcome:         s.lastOutcome,
	}
}
