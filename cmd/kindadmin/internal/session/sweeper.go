package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSweepSchedule checks every stored session for expiry.
const DefaultSweepSchedule = "@every 5m"

// SweepResult summarizes one pass of the sweeper.
type SweepResult struct {
	Checked int
	Active  int
	Cleared int
	Purged  int
}

// Sweeper periodically restores every stored session, which logs out those
// whose token expired, and purges stale rows from storages that need it.
type Sweeper struct {
	manager  *Manager
	cron     *cron.Cron
	staleTTL time.Duration
	logger   logrus.FieldLogger
	onSweep  func(SweepResult)
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepHook is called after every completed sweep.
func WithSweepHook(fn func(SweepResult)) SweeperOption {
	return func(s *Sweeper) {
		s.onSweep = fn
	}
}

// WithStaleTTL enables purging of sessions not written for ttl.
func WithStaleTTL(ttl time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.staleTTL = ttl
	}
}

// NewSweeper schedules Sweep on schedule (a robfig/cron spec such as "@every 5m").
func NewSweeper(manager *Manager, schedule string, logger logrus.FieldLogger, opts ...SweeperOption) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &Sweeper{
		manager: manager,
		logger:  logger.WithField("component", "session-sweeper"),
	}
	for _, opt := range opts {
		opt(s)
	}

	cronLogger := cron.PrintfLogger(s.logger)
	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule; the returned context is done once a running sweep finishes.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := s.Sweep(ctx)
	if err != nil {
		s.logger.WithError(err).Error("session sweep failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"checked": result.Checked,
		"active":  result.Active,
		"cleared": result.Cleared,
		"purged":  result.Purged,
	}).Debug("session sweep complete")
}

// Sweep performs one pass immediately.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	store := s.manager.Storage()
	if purger, ok := store.(Purger); ok && s.staleTTL > 0 {
		purged, err := purger.PurgeStale(ctx, s.manager.now().Add(-s.staleTTL))
		if err != nil {
			return result, fmt.Errorf("purge stale sessions: %w", err)
		}
		result.Purged = purged
	}

	ids, err := store.Sessions(ctx)
	if err != nil {
		return result, fmt.Errorf("list sessions: %w", err)
	}

	for _, id := range ids {
		sess, cleared, err := s.manager.restore(ctx, id)
		if err != nil {
			return result, err
		}
		result.Checked++
		if cleared {
			result.Cleared++
		}
		if sess.IsAuthenticated() {
			result.Active++
		}
	}

	if s.onSweep != nil {
		s.onSweep(result)
	}
	return result, nil
}
