package mlfq

import (
	"context"
	"testing"

	"mlfq-scheduler/pkg/platform"
)

func testProfiler(t *testing.T, quantum uint64) (*platform.Sim, *Table, *EventChannel, *TickProfiler) {
	t.Helper()

	sim := platform.NewSim()
	cfg := DefaultConfig()
	cfg.Ladder[High] = quantum

	table := NewTable(sim, cfg)
	events := NewEventChannel(cfg.EventQueueLen)
	profiler := NewTickProfiler(sim, table, events)

	return sim, table, events, profiler
}

func TestOnTickNoopWithoutCurrentTask(t *testing.T) {
	t.Parallel()

	_, _, events, profiler := testProfiler(t, 3)

	profiler.OnTick()

	if _, ok := events.TryRecv(); ok {
		t.Fatal("expected no event without a current task")
	}
}

func TestOnTickChargesBurstAndStaysQuietBelowQuantum(t *testing.T) {
	t.Parallel()

	sim, table, events, profiler := testProfiler(t, 3)

	h, _ := sim.CreateTask("t", 0, nil)
	table.Register(h)
	sim.SetRunning(h)

	profiler.OnTick()
	profiler.OnTick()

	if _, ok := events.TryRecv(); ok {
		t.Fatal("expected no event before the quantum is exhausted")
	}

	entry, _ := table.Find(h)
	if entry.Burst != 2 {
		t.Fatalf("expected burst 2, got %d", entry.Burst)
	}
}

func TestOnTickRaisesEventAtQuantumExhaustion(t *testing.T) {
	t.Parallel()

	sim, table, events, profiler := testProfiler(t, 2)

	h, _ := sim.CreateTask("t", 0, nil)
	table.Register(h)
	sim.SetRunning(h)

	profiler.OnTick()
	profiler.OnTick()

	got, ok := events.TryRecv()
	if !ok || got != h {
		t.Fatalf("expected an event for handle %v, got %v (ok=%v)", h, got, ok)
	}
}

func TestOnTickNotifiesRegisteredManager(t *testing.T) {
	t.Parallel()

	sim, table, events, profiler := testProfiler(t, 1)

	manager, _ := sim.CreateTask("manager", 0, nil)
	profiler.SetManager(manager)

	h, _ := sim.CreateTask("t", 0, nil)
	table.Register(h)
	sim.SetRunning(h)

	profiler.OnTick()

	if _, ok := events.TryRecv(); !ok {
		t.Fatal("expected an event to have been raised")
	}

	if !sim.Wait(context.Background(), manager, 0) {
		t.Fatal("expected the manager task to have been notified")
	}
}

func TestOnTickExcludesManagerFromBurstAccounting(t *testing.T) {
	t.Parallel()

	sim, table, events, profiler := testProfiler(t, 1)

	manager, _ := sim.CreateTask("manager", 0, nil)
	profiler.SetManager(manager)
	table.Register(manager)

	sim.SetRunning(manager)

	profiler.OnTick()
	profiler.OnTick()

	if _, ok := events.TryRecv(); ok {
		t.Fatal("expected the manager's own running time never to exhaust a quantum")
	}

	entry, _ := table.Find(manager)
	if entry.Burst != 0 {
		t.Fatalf("expected the manager's burst to stay at 0, got %d", entry.Burst)
	}
}
