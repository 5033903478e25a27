// Package obslog adapts the policy's optional observer hook onto structured
// logging via a decorator that wraps and forwards to an underlying
// recorder.
package obslog

import (
	"go.uber.org/zap"

	"mlfq-scheduler/pkg/mlfq"
	"mlfq-scheduler/pkg/platform"
)

// Recorder logs every band transition, global boost, and external
// promotion the policy reports, then forwards the same observation to an
// optional wrapped Recorder.
type Recorder struct {
	logger *zap.Logger
	next   mlfq.Recorder
}

// NewRecorder constructs a logging Recorder. next may be nil; logger may
// also be nil, in which case a no-op logger is used.
func NewRecorder(logger *zap.Logger, next mlfq.Recorder) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recorder{logger: logger, next: next}
}

// ObserveTransition implements mlfq.Recorder.
func (r *Recorder) ObserveTransition(handle platform.TaskHandle, from, to mlfq.Level) {
	r.logger.Info("task band transition",
		zap.Uint64("task", uint64(handle)),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)

	if r.next != nil {
		r.next.ObserveTransition(handle, from, to)
	}
}

// ObserveBoost implements mlfq.Recorder.
func (r *Recorder) ObserveBoost(tick uint64, occupied int) {
	r.logger.Info("global boost",
		zap.Uint64("tick", tick),
		zap.Int("occupied", occupied),
	)

	if r.next != nil {
		r.next.ObserveBoost(tick, occupied)
	}
}

// ObservePromotion implements mlfq.Recorder.
func (r *Recorder) ObservePromotion(handle platform.TaskHandle, from, to mlfq.Level) {
	r.logger.Info("task promoted",
		zap.Uint64("task", uint64(handle)),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)

	if r.next != nil {
		r.next.ObservePromotion(handle, from, to)
	}
}
