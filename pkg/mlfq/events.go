package mlfq

import "mlfq-scheduler/pkg/platform"

// EventChannel is the single-producer (tick profiler, ISR context),
// single-consumer (scheduler manager, task context) handoff carrying
// "this task exhausted its quantum" notifications. Sends never
// block: a full channel means the manager is falling behind, and the
// profiler drops the event rather than stall the tick ISR.
type EventChannel struct {
	ch      chan platform.TaskHandle
	dropped chan struct{}
}

// NewEventChannel allocates a channel buffered to depth.
func NewEventChannel(depth int) *EventChannel {
	return &EventChannel{
		ch:      make(chan platform.TaskHandle, depth),
		dropped: make(chan struct{}, 1),
	}
}

// TrySend enqueues h without blocking, reporting false if the channel was
// full and the event was dropped.
func (e *EventChannel) TrySend(h platform.TaskHandle) bool {
	select {
	case e.ch <- h:
		return true
	default:
		select {
		case e.dropped <- struct{}{}:
		default:
		}

		return false
	}
}

// TryRecv dequeues the next pending handle without blocking.
func (e *EventChannel) TryRecv() (platform.TaskHandle, bool) {
	select {
	case h := <-e.ch:
		return h, true
	default:
		return platform.NoTask, false
	}
}

// C exposes the underlying channel for callers (the scheduler manager)
// that want to select on it alongside a timer.
func (e *EventChannel) C() <-chan platform.TaskHandle {
	return e.ch
}

// DroppedSignal exposes a channel that receives a value whenever TrySend
// drops an event for lack of buffer space, coalesced so a burst of drops
// only ever leaves one pending signal.
func (e *EventChannel) DroppedSignal() <-chan struct{} {
	return e.dropped
}
