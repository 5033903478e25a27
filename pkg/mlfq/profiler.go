package mlfq

import (
	"sync/atomic"

	"mlfq-scheduler/pkg/platform"
)

// TickProfiler is the ISR-context half of the policy: on every
// host tick it asks the platform which task is running, charges that task
// one tick of burst, and — if the burst reaches the quantum for the task's
// current band — raises a quantum-exhaustion event for the scheduler
// manager to act on in task context. It never mutates a task's band
// itself; OnTick only observes and signals.
type TickProfiler struct {
	kernel platform.Platform
	table  *Table
	events *EventChannel

	manager atomic.Uint64 // platform.TaskHandle of the manager task, once known
}

// NewTickProfiler wires a profiler to the given table and event channel.
// The manager task handle is supplied later via SetManager, since the
// manager task typically needs its own handle (returned by CreateTask)
// before it can be told to the profiler.
func NewTickProfiler(kernel platform.Platform, table *Table, events *EventChannel) *TickProfiler {
	return &TickProfiler{kernel: kernel, table: table, events: events}
}

// SetManager records the scheduler manager's own task handle so the
// profiler can wake it with NotifyFromISR on quantum exhaustion, and
// exclude it from burst accounting (the manager itself is not a scheduled
// workload task).
func (p *TickProfiler) SetManager(h platform.TaskHandle) {
	p.manager.Store(uint64(h))
}

func (p *TickProfiler) managerHandle() platform.TaskHandle {
	return platform.TaskHandle(p.manager.Load())
}

// OnTick implements the per-tick accounting step. Register it with
// Platform.SetTickHook so the host timer ISR invokes it every tick.
func (p *TickProfiler) OnTick() {
	current, ok := p.kernel.CurrentTask()
	if !ok || current == platform.NoTask {
		return
	}

	if manager := p.managerHandle(); manager != platform.NoTask && current == manager {
		return
	}

	burst, _, quantum, found := p.table.IncrementBurst(current)
	if !found {
		return
	}

	if burst < quantum {
		return
	}

	p.events.TrySend(current)

	if manager := p.managerHandle(); manager != platform.NoTask {
		p.kernel.NotifyFromISR(manager)
	}
}
