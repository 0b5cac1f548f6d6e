package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Reasons a monitoring session ends.
const (
	ReasonStopped   = "stopped"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// Report is the outcome of a monitoring session.
type Report struct {
	Events    []Event   `json:"events"`
	Polls     int       `json:"polls"`
	Reason    string    `json:"reason"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Count returns the number of events of type t.
func (r *Report) Count(t EventType) int {
	n := 0
	for _, e := range r.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Monitor polls a Sampler.
type Monitor struct {
	sampler     Sampler
	interval    time.Duration
	maxDuration time.Duration
	logger      *slog.Logger
}

// New creates a Monitor from a finalized config.
func New(sampler Sampler, cfg *Config, logger *slog.Logger) *Monitor {
	return &Monitor{
		sampler:     sampler,
		interval:    cfg.IntervalDuration(),
		maxDuration: cfg.MaxDurationValue(),
		logger:      logger.With("system", "monitor"),
	}
}

// Run polls until stop is closed, the maximum duration elapses or ctx is
// cancelled. Events captured so far are always returned; only cancellation
// yields an error. A failed poll is reported as an error event and polling
// continues at the next tick.
func (m *Monitor) Run(ctx context.Context, stop <-chan struct{}) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC(), Events: make([]Event, 0)}

	timeout := time.NewTimer(m.maxDuration)
	defer timeout.Stop()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitoring started", "interval", m.interval, "max_duration", m.maxDuration)

	var prev Snapshot
	first := true
	poll := func() {
		pollCtx, cancel := context.WithTimeout(ctx, m.interval)
		defer cancel()

		report.Polls++
		next, err := m.sampler.Snapshot(pollCtx)
		if err != nil {
			m.logger.Warn("poll failed", "error", err)
			report.Events = append(report.Events, Event{
				Type:   EventErrorDetected,
				Detail: "poll failed: " + err.Error(),
				At:     time.Now().UTC(),
			})
			return
		}

		if first {
			first = false
			prev = Snapshot{Running: next.Running}
		}
		for _, e := range Diff(prev, next) {
			m.logger.Info("editor event", "type", e.Type, "detail", e.Detail, "kind", e.Kind)
			report.Events = append(report.Events, e)
		}
		prev = next
	}

	finish := func(reason string) *Report {
		report.Reason = reason
		report.EndedAt = time.Now().UTC()
		m.logger.Info("monitoring ended", "reason", reason, "polls", report.Polls, "events", len(report.Events))
		return report
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return finish(ReasonCancelled), ctx.Err()
		case <-stop:
			return finish(ReasonStopped), nil
		case <-timeout.C:
			return finish(ReasonTimeout), nil
		case <-ticker.C:
			poll()
		}
	}
}
