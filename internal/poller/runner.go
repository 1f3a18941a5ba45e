// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tamzrod/powerlog/internal/clock"
	"github.com/tamzrod/powerlog/internal/status"
)

// State is the scheduler lifecycle.
type State int32

const (
	Idle State = iota
	Sampling
	Sleeping
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Sleeping:
		return "sleeping"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SampleReader produces one Measurement per call and never fails.
type SampleReader interface {
	Read(ctx context.Context) Measurement
}

// Sink makes one record durable before returning.
type Sink interface {
	Write(rec LogRecord) error
}

// Observer receives per-tick outcomes (metrics).
type Observer interface {
	Tick(m Measurement, elapsed time.Duration, overrun bool)
	Health(s status.Snapshot)
}

// Config is the runtime config the scheduler needs.
type Config struct {
	Interval time.Duration

	// MaxTicks stops the run cleanly after this many completed ticks.
	// 0 means run until cancelled.
	MaxTicks uint64

	Clock    clock.Clock
	Logger   *slog.Logger
	Observer Observer
}

var errInvalidSample = errors.New("invalid sample")

// Scheduler is the fixed-period sampling loop.
// One goroutine, no overlap, one record per completed tick.
type Scheduler struct {
	cfg    Config
	reader SampleReader
	sink   Sink

	state  atomic.Int32
	ticks  atomic.Uint64
	health status.Snapshot
}

// NewScheduler creates a scheduler with immutable config.
func NewScheduler(cfg Config, reader SampleReader, sink Sink) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be > 0")
	}
	if reader == nil {
		return nil, errors.New("scheduler: reader required")
	}
	if sink == nil {
		return nil, errors.New("scheduler: sink required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Scheduler{cfg: cfg, reader: reader, sink: sink}, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 { return s.ticks.Load() }

// Run drives the loop until ctx is cancelled, MaxTicks is reached, or a
// record cannot be persisted. Only the last case returns an error.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.setState(Stopping)

	log := s.cfg.Logger
	clk := s.cfg.Clock

	for {
		if ctx.Err() != nil {
			log.Info("sampling stopped", "ticks", s.Ticks())
			return nil
		}

		s.setState(Sampling)
		start := clk.Now()

		m := s.reader.Read(ctx)

		// A read cut short by shutdown is not a completed tick.
		if !m.Valid && ctx.Err() != nil {
			log.Info("sampling stopped", "ticks", s.Ticks())
			return nil
		}

		rec := NewLogRecord(m)
		if err := s.sink.Write(rec); err != nil {
			return &PersistenceError{Err: err}
		}
		n := s.ticks.Add(1)

		s.report(m, rec)

		elapsed := clock.Since(clk, start)
		wait := s.cfg.Interval - elapsed
		s.cfg.Observer.Tick(m, elapsed, wait <= 0)

		if s.cfg.MaxTicks > 0 && n >= s.cfg.MaxTicks {
			log.Info("sample count reached", "ticks", n)
			return nil
		}

		if wait <= 0 {
			log.Warn("tick overran interval, sampling immediately", "elapsed", elapsed, "interval", s.cfg.Interval)
			continue
		}

		s.setState(Sleeping)
		t := clk.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			log.Info("sampling stopped", "ticks", n)
			return nil
		case <-t.C:
		}
	}
}

func (s *Scheduler) report(m Measurement, rec LogRecord) {
	log := s.cfg.Logger

	err := m.Err
	if m.Valid {
		log.Info("sample", "timestamp", rec.Timestamp, "watts", rec.Value)
	} else {
		if err == nil {
			err = errInvalidSample
		}
		log.Warn("could not read device, logging zero", "timestamp", rec.Timestamp, "watts", rec.Value, "err", err)
	}

	next, changed := status.Next(s.health, err, m.Timestamp)
	if changed {
		log.Info(
			"device health changed",
			"from", status.HealthName(s.health.Health),
			"to", status.HealthName(next.Health),
		)
	}
	s.health = next
	s.cfg.Observer.Health(next)
}

func (s *Scheduler) setState(st State) { s.state.Store(int32(st)) }

type nopObserver struct{}

func (nopObserver) Tick(Measurement, time.Duration, bool) {}
func (nopObserver) Health(status.Snapshot)                {}
