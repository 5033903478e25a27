//go:build linux

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// schedSetScheduler is overridden in tests so priority changes can be
// exercised without CAP_SYS_NICE.
var (
	schedSetSchedulerMu sync.RWMutex
	schedSetScheduler   = unix.SchedSetScheduler
)

// realTimeFloor and realTimeCeiling bound the SCHED_RR priority range a
// Linux host accepts (1 is the lowest real-time priority, 99 the highest).
const (
	realTimeFloor   = 1
	realTimeCeiling = 99
)

// Linux is a best-effort Platform mapping the MLFQ host-priority numbers
// onto real SCHED_RR thread priorities. It demonstrates that the Platform
// contract is satisfiable on a real OS; it is never required for policy
// correctness, which only ever depends on the Platform interface.
type Linux struct {
	epoch time.Time

	nextID atomic.Uint64

	critical sync.Mutex

	tasksMu sync.Mutex
	tasks   map[TaskHandle]*linuxTask

	hookMu sync.Mutex
	hook   func()

	running atomic.Uint64
}

type linuxTask struct {
	tid      atomic.Int32
	ready    chan struct{}
	signal   chan struct{}
	priority atomic.Int64
}

// NewLinux constructs a Linux platform. Its tick resolution is one
// millisecond, matching Sim's convention so configuration expressed in
// milliseconds behaves identically under either implementation.
func NewLinux() *Linux {
	return &Linux{epoch: time.Now(), tasks: make(map[TaskHandle]*linuxTask)}
}

// CreateTask implements Platform. The task body runs on a locked OS thread
// so SetPriority can retune that specific thread's scheduling class.
func (l *Linux) CreateTask(_ string, priority int, fn TaskFunc) (TaskHandle, error) {
	handle := TaskHandle(l.nextID.Add(1))

	task := &linuxTask{
		ready:  make(chan struct{}),
		signal: make(chan struct{}, 1),
	}
	task.priority.Store(int64(priority))

	l.tasksMu.Lock()
	l.tasks[handle] = task
	l.tasksMu.Unlock()

	if fn != nil {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			task.tid.Store(int32(unix.Gettid()))
			close(task.ready)

			fn(context.Background(), handle)
		}()
	}

	return handle, nil
}

// SetPriority implements Platform by invoking sched_setscheduler(2) against
// the task's locked OS thread with SCHED_RR and a clamped real-time
// priority. Returns an error (e.g. EPERM without CAP_SYS_NICE) rather than
// failing fatally, matching the host-kernel contract's non-blocking,
// non-fatal expectation.
func (l *Linux) SetPriority(h TaskHandle, priority int) error {
	l.tasksMu.Lock()
	task, ok := l.tasks[h]
	l.tasksMu.Unlock()

	if !ok {
		return ErrUnknownTask
	}

	<-task.ready

	task.priority.Store(int64(priority))

	schedPriority := clampRealTimePriority(priority)

	schedSetSchedulerMu.RLock()
	fn := schedSetScheduler
	schedSetSchedulerMu.RUnlock()

	tid := int(task.tid.Load())

	err := fn(tid, unix.SCHED_RR, &unix.SchedParam{Priority: schedPriority})
	if err != nil {
		return fmt.Errorf("sched_setscheduler tid=%d priority=%d: %w", tid, schedPriority, err)
	}

	return nil
}

func clampRealTimePriority(priority int) int {
	if priority < realTimeFloor {
		return realTimeFloor
	}

	if priority > realTimeCeiling {
		return realTimeCeiling
	}

	return priority
}

// SetRunning designates h as the task attributed the next real tick. A
// production binding would instead infer this from the kernel's own
// scheduler; Linux here is a demonstration platform layered over Go's
// cooperative goroutines, so the same explicit bookkeeping Sim uses applies.
func (l *Linux) SetRunning(h TaskHandle) {
	l.running.Store(uint64(h))
}

// CurrentTask implements Platform.
func (l *Linux) CurrentTask() (TaskHandle, bool) {
	h := TaskHandle(l.running.Load())
	if h == NoTask {
		return NoTask, false
	}

	return h, true
}

// Ticks implements Platform using a real monotonic millisecond clock.
func (l *Linux) Ticks() uint64 {
	elapsed := time.Since(l.epoch)

	return uint64(elapsed / time.Millisecond)
}

// MsToTicks implements Platform.
func (l *Linux) MsToTicks(ms int64) uint64 {
	if ms <= 0 {
		return 0
	}

	return uint64(ms)
}

// EnterCritical implements Platform. Linux cannot disable kernel preemption
// from userspace, so this approximates the contract with a process-local
// mutex, sufficient for serializing this policy's own table mutations.
func (l *Linux) EnterCritical() func() {
	l.critical.Lock()

	return l.critical.Unlock
}

// NotifyFromISR implements Platform.
func (l *Linux) NotifyFromISR(h TaskHandle) {
	l.tasksMu.Lock()
	task, ok := l.tasks[h]
	l.tasksMu.Unlock()

	if !ok {
		return
	}

	select {
	case task.signal <- struct{}{}:
	default:
	}
}

// Wait implements Platform.
func (l *Linux) Wait(ctx context.Context, h TaskHandle, timeout time.Duration) bool {
	l.tasksMu.Lock()
	task, ok := l.tasks[h]
	l.tasksMu.Unlock()

	if !ok {
		return false
	}

	var timerC <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		timerC = timer.C
	}

	select {
	case <-task.signal:
		return true
	case <-timerC:
		return false
	case <-ctx.Done():
		return false
	}
}

// SetTickHook implements Platform.
func (l *Linux) SetTickHook(fn func()) {
	l.hookMu.Lock()
	l.hook = fn
	l.hookMu.Unlock()
}

// Tick invokes the registered tick hook. A production binding would arrange
// for the host timer interrupt to call this; nothing in cmd/mlfqd calls it,
// since the ticker-driven workload there runs only in -mode simulate, which
// uses Sim.
func (l *Linux) Tick() {
	l.hookMu.Lock()
	hook := l.hook
	l.hookMu.Unlock()

	if hook != nil {
		hook()
	}
}
