package rotation

import (
	"context"
	"time"

	"github.com/systmms/rotor/internal/conn"
	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
)

// Source yields the current desired connection configuration, resolving the
// secret from wherever it lives. Implementations tolerate being called once
// per tick.
type Source interface {
	Load(ctx context.Context) (conn.Config, error)
}

// SchedulerConfig holds configuration for the proactive poll loop.
type SchedulerConfig struct {
	// Interval is how often the configuration source is re-checked.
	// Default: 5 minutes
	Interval time.Duration

	// TickTimeout bounds a single reload-and-reconnect pass. Stopping the
	// scheduler does not cut this short.
	// Default: 30 seconds
	TickTimeout time.Duration
}

// Scheduler proactively detects out-of-band secret rotation by reloading the
// configuration source on a timer and handing any change to the connection
// manager.
type Scheduler struct {
	manager *conn.Manager
	source  Source
	config  SchedulerConfig
	metrics *Metrics
	logger  *logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a proactive rotation scheduler.
func NewScheduler(manager *conn.Manager, source Source, config SchedulerConfig, logger *logging.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.TickTimeout <= 0 {
		config.TickTimeout = 30 * time.Second
	}
	return &Scheduler{
		manager: manager,
		source:  source,
		config:  config,
		metrics: NewMetrics(),
		logger:  logger.Named("scheduler"),
	}
}

// Start launches the poll loop in a background goroutine. Cancellation is
// cooperative: it is observed between ticks, and a reconnect already in
// progress when the context fires is allowed to finish.
func (s *Scheduler) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(loopCtx)
}

// Stop cancels the loop and waits for it to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Debug("polling for rotation every %s", s.config.Interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("poll loop stopped")
			return
		case <-ticker.C:
			// Cancellation is observed here, between ticks. The tick
			// itself runs under its own deadline so that Stop does not
			// abort a reconnect already in flight.
			tickCtx, cancel := context.WithTimeout(context.Background(), s.config.TickTimeout)
			s.tick(tickCtx)
			cancel()
		}
	}
}

// tick reloads the configuration source and reconnects on change. Transient
// reload failures are logged and skipped; the last-known-good state keeps
// serving until the next tick.
func (s *Scheduler) tick(ctx context.Context) {
	candidate, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Warn("configuration reload failed, keeping last-known-good state: %v", err)
		return
	}

	rotated, err := s.manager.Reconnect(ctx, candidate, false)
	if err != nil {
		if rotorerrors.IsReconnect(err) {
			s.logger.Warn("candidate configuration rejected, keeping current state: %v", err)
		} else {
			s.logger.Error("reconnect failed: %v", err)
		}
		s.metrics.RecordReconnectAttempt("scheduler", "failure")
		return
	}

	if rotated {
		s.metrics.RecordCredentialRotated()
		s.metrics.RecordReconnectAttempt("scheduler", "success")
		s.logger.Info("credential rotation detected and applied")
	} else {
		s.metrics.RecordReconnectAttempt("scheduler", "noop")
	}
}
