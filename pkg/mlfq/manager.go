package mlfq

import (
	"context"
	"sync/atomic"

	"mlfq-scheduler/pkg/platform"
)

// Recorder observes policy transitions for logging and metrics purposes.
// It is never consulted for scheduling decisions; every method must return
// promptly since demote and maybeBoost call it while holding no lock of
// their own, but from inside the manager's own task (Policy.Promote calls
// ObservePromotion from the caller's goroutine instead).
type Recorder interface {
	// ObserveTransition fires whenever the manager changes a task's band,
	// through either a quantum-driven demotion or a global boost. Band
	// changes made by Policy.Promote are reported via ObservePromotion
	// only.
	ObserveTransition(handle platform.TaskHandle, from, to Level)

	// ObserveBoost fires once per global boost, reporting how many tasks
	// were occupying a slot at the time.
	ObserveBoost(tick uint64, occupied int)

	// ObservePromotion fires when an external caller promotes a task via
	// Policy.Promote, independent of the manager's own loop.
	ObservePromotion(handle platform.TaskHandle, from, to Level)
}

// NopRecorder discards every observation. It is the Manager's default so
// callers that don't care about logging or metrics need not provide one.
type NopRecorder struct{}

func (NopRecorder) ObserveTransition(platform.TaskHandle, Level, Level) {}
func (NopRecorder) ObserveBoost(uint64, int)                            {}
func (NopRecorder) ObservePromotion(platform.TaskHandle, Level, Level)  {}

// Stats are the manager's own running counters, read via Manager.Stats.
type Stats struct {
	Demotions uint64
	Boosts    uint64
	Dropped   uint64
}

// Manager is the task-context half of the policy: it drains
// quantum-exhaustion events raised by the TickProfiler and demotes the
// named task one band, and periodically sweeps every occupied slot back
// to High (the global boost, a starvation guard). It runs as a
// single host task so every table mutation it performs is naturally
// serialized with respect to itself; concurrent external callers (Promote)
// serialize through the table's own critical section instead.
type Manager struct {
	kernel   platform.Platform
	table    *Table
	events   *EventChannel
	profiler *TickProfiler
	cfg      Config
	recorder Recorder

	self      platform.TaskHandle
	lastBoost atomic.Uint64

	demotions atomic.Uint64
	boosts    atomic.Uint64
	dropped   atomic.Uint64
}

// NewManager wires a manager to its collaborators. recorder may be nil, in
// which case observations are discarded.
func NewManager(kernel platform.Platform, table *Table, events *EventChannel, profiler *TickProfiler, cfg Config, recorder Recorder) *Manager {
	if recorder == nil {
		recorder = NopRecorder{}
	}

	return &Manager{kernel: kernel, table: table, events: events, profiler: profiler, cfg: cfg, recorder: recorder}
}

// Run is the manager task's body. It registers itself with the tick
// profiler so quantum-exhaustion notifications target it, then loops until
// ctx is cancelled, draining events and checking for a due global boost
// between waits.
func (m *Manager) Run(ctx context.Context, self platform.TaskHandle) error {
	m.self = self
	m.profiler.SetManager(self)
	m.lastBoost.Store(m.kernel.Ticks())

	boostTicks := m.kernel.MsToTicks(m.cfg.BoostPeriod.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		m.drainEvents()
		m.maybeBoost(boostTicks)
		m.drainDropped()

		m.kernel.Wait(ctx, self, m.cfg.ManagerIdleInterval)
	}
}

func (m *Manager) drainEvents() {
	for {
		h, ok := m.events.TryRecv()
		if !ok {
			return
		}

		m.demote(h)
	}
}

func (m *Manager) drainDropped() {
	select {
	case <-m.events.DroppedSignal():
		m.dropped.Add(1)
	default:
	}
}

// demote moves h one band down the ladder, or resets it in place if it is
// already at Low, and always resets its burst counter to grant a fresh
// quantum: quantum exhaustion always yields a fresh run, whether or not
// the band itself changes.
func (m *Manager) demote(h platform.TaskHandle) {
	from, ok := m.table.LevelOf(h)
	if !ok {
		return
	}

	to := from.Demoted()

	if err := m.table.SetLevel(h, to); err != nil {
		return
	}

	m.demotions.Add(1)

	if to != from {
		m.recorder.ObserveTransition(h, from, to)
	}
}

// maybeBoost runs the global boost once boostTicks have elapsed since the
// last one, returning every occupied task to High.
func (m *Manager) maybeBoost(boostTicks uint64) {
	now := m.kernel.Ticks()
	last := m.lastBoost.Load()

	if now-last < boostTicks {
		return
	}

	m.lastBoost.Store(now)

	entries := m.table.Snapshot()

	for _, e := range entries {
		if err := m.table.SetLevel(e.Handle, High); err != nil {
			continue
		}

		if e.Level != High {
			m.recorder.ObserveTransition(e.Handle, e.Level, High)
		}
	}

	m.boosts.Add(1)
	m.recorder.ObserveBoost(now, len(entries))
}

// Stats returns a snapshot of the manager's running counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Demotions: m.demotions.Load(),
		Boosts:    m.boosts.Load(),
		Dropped:   m.dropped.Load(),
	}
}
