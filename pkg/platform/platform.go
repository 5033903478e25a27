// Package platform captures the host real-time kernel contract the MLFQ
// policy is built on top of: task creation, priority assignment, the
// current-task query available from ISR context, the monotonic tick
// counter, critical sections, and the ISR-safe notification primitive.
//
// The policy core (pkg/mlfq) depends only on the Platform interface, never
// on a concrete implementation, so it can be exercised in plain task
// context against Sim without any real RTOS hardware.
package platform

import (
	"context"
	"errors"
	"time"
)

// TaskHandle is the opaque task identity supplied by the host kernel. The
// zero value, NoTask, marks the absence of a task.
type TaskHandle uint64

// NoTask is the sentinel handle meaning "no task".
const NoTask TaskHandle = 0

// ErrUnknownTask is returned by operations addressing a handle the platform
// has no record of.
var ErrUnknownTask = errors.New("platform: unknown task handle")

// TaskFunc is the body run by a task created through Platform.CreateTask. It
// receives its own handle so it can identify itself to NotifyFromISR/Wait
// without a separate registration step.
type TaskFunc func(ctx context.Context, self TaskHandle)

// Platform is the host-kernel contract consumed by the MLFQ policy. Every
// method must be safe to call concurrently; the tick hook (tick ISR
// context) invokes CurrentTask, EnterCritical, and NotifyFromISR.
type Platform interface {
	// CreateTask starts fn as a new host task at the given priority and
	// returns its handle.
	CreateTask(name string, priority int, fn TaskFunc) (TaskHandle, error)

	// SetPriority changes the host-kernel priority of a running task. Never
	// blocks.
	SetPriority(h TaskHandle, priority int) error

	// CurrentTask returns the handle of the task currently executing on the
	// host CPU, or (NoTask, false) if no task is running.
	// Valid from ISR context.
	CurrentTask() (TaskHandle, bool)

	// Ticks returns the monotonic host tick counter.
	Ticks() uint64

	// MsToTicks converts a millisecond duration into host ticks.
	MsToTicks(ms int64) uint64

	// EnterCritical disables preemption and returns the matching exit
	// function. Callers must invoke the returned function exactly once.
	EnterCritical() func()

	// NotifyFromISR raises a binary, edge-triggered signal at the named
	// task. Safe to call from ISR context. Idempotent while unconsumed.
	NotifyFromISR(h TaskHandle)

	// Wait blocks the calling task until NotifyFromISR fires, the timeout
	// elapses, or ctx is cancelled. Returns true only when woken by a
	// notification.
	Wait(ctx context.Context, h TaskHandle, timeout time.Duration) bool

	// SetTickHook registers the function invoked once per host tick, from
	// timer-ISR context. Only one hook may be registered; a later call
	// replaces the earlier one.
	SetTickHook(fn func())
}
