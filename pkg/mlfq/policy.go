package mlfq

import (
	"context"

	"mlfq-scheduler/pkg/platform"
)

// managerTaskName is the name passed to Platform.CreateTask for the
// scheduler manager's own host task.
const managerTaskName = "mlfq-manager"

// Policy is the public facade over the task table, tick profiler, event
// channel, and scheduler manager: the only surface application
// code and the ambient HTTP/metrics layer need to depend on.
type Policy struct {
	kernel   platform.Platform
	cfg      Config
	table    *Table
	events   *EventChannel
	profiler *TickProfiler
	manager  *Manager
}

// New constructs a Policy over kernel with the given configuration. It
// wires the table, event channel, tick profiler, and manager together, and
// registers the profiler's OnTick as the platform's tick hook, but does
// not yet start the manager task — call StartManager for that once the
// caller's own context is ready.
func New(kernel platform.Platform, cfg Config, recorder Recorder) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table := NewTable(kernel, cfg)
	events := NewEventChannel(cfg.EventQueueLen)
	profiler := NewTickProfiler(kernel, table, events)
	manager := NewManager(kernel, table, events, profiler, cfg, recorder)

	kernel.SetTickHook(profiler.OnTick)

	return &Policy{kernel: kernel, cfg: cfg, table: table, events: events, profiler: profiler, manager: manager}, nil
}

// StartManager spawns the scheduler manager as its own host task, one host
// priority above the top band so it always preempts the workload it manages.
// The task body registers itself with the tick profiler before entering
// its run loop: the manager must be known to the profiler before any
// quantum-exhaustion notification can target it.
func (p *Policy) StartManager(ctx context.Context) error {
	_, err := p.kernel.CreateTask(managerTaskName, High.HostPriority(p.cfg.TopPriority)+1, func(taskCtx context.Context, self platform.TaskHandle) {
		_ = p.manager.Run(ctx, self)
	})

	return err
}

// Register admits a task, already created on kernel, into the policy at
// the top band.
func (p *Policy) Register(h platform.TaskHandle) RegisterOutcome {
	return p.table.Register(h)
}

// Unregister removes a task from the policy's management.
func (p *Policy) Unregister(h platform.TaskHandle) {
	p.table.Unregister(h)
}

// Promote moves h one band up the ladder, independent of the manager's own
// demotion/boost cycle. It is the hook an external interactive-task
// classifier (kept entirely outside this package) would call; the policy
// itself applies no such heuristic. A task already at High is a no-op; a
// full jump to the top band is what the manager's own global boost does,
// not this call.
func (p *Policy) Promote(h platform.TaskHandle) error {
	from, ok := p.table.LevelOf(h)
	if !ok {
		return ErrSlotNotFound
	}

	if from == High {
		return nil
	}

	to := from.Promoted()

	if err := p.table.SetLevel(h, to); err != nil {
		return err
	}

	p.manager.recorder.ObservePromotion(h, from, to)

	return nil
}

// TaskLevel reports h's current band.
func (p *Policy) TaskLevel(h platform.TaskHandle) (Level, bool) {
	return p.table.LevelOf(h)
}

// Snapshot returns every task the policy currently manages.
func (p *Policy) Snapshot() []Entry {
	return p.table.Snapshot()
}

// Capacity returns the task table's slot count.
func (p *Policy) Capacity() int {
	return p.table.Capacity()
}

// Stats returns the scheduler manager's running counters (demotions,
// boosts, dropped events). Reporting is always pulled from the outside;
// the manager's own loop never calls this.
func (p *Policy) Stats() Stats {
	return p.manager.Stats()
}

// Config returns the configuration the policy was constructed with.
func (p *Policy) Config() Config {
	return p.cfg
}
