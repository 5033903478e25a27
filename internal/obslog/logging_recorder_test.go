package obslog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mlfq-scheduler/pkg/mlfq"
	"mlfq-scheduler/pkg/platform"
)

type fakeRecorder struct {
	transitions int
	boosts      int
	promotions  int
}

func (f *fakeRecorder) ObserveTransition(platform.TaskHandle, mlfq.Level, mlfq.Level) {
	f.transitions++
}

func (f *fakeRecorder) ObserveBoost(uint64, int) {
	f.boosts++
}

func (f *fakeRecorder) ObservePromotion(platform.TaskHandle, mlfq.Level, mlfq.Level) {
	f.promotions++
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)

	return zap.New(core), logs
}

func TestRecorderLogsAndForwardsTransition(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger()
	next := &fakeRecorder{}

	r := NewRecorder(logger, next)
	r.ObserveTransition(platform.TaskHandle(3), mlfq.High, mlfq.Medium)

	if next.transitions != 1 {
		t.Fatalf("expected the wrapped recorder to observe the transition, got %d calls", next.transitions)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}

	if entries[0].Message != "task band transition" {
		t.Fatalf("unexpected log message: %q", entries[0].Message)
	}
}

func TestRecorderLogsAndForwardsBoost(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger()
	next := &fakeRecorder{}

	r := NewRecorder(logger, next)
	r.ObserveBoost(42, 5)

	if next.boosts != 1 {
		t.Fatalf("expected the wrapped recorder to observe the boost, got %d calls", next.boosts)
	}

	if len(logs.All()) != 1 {
		t.Fatalf("expected one log entry, got %d", len(logs.All()))
	}
}

func TestRecorderLogsAndForwardsPromotion(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger()
	next := &fakeRecorder{}

	r := NewRecorder(logger, next)
	r.ObservePromotion(platform.TaskHandle(9), mlfq.Low, mlfq.High)

	if next.promotions != 1 {
		t.Fatalf("expected the wrapped recorder to observe the promotion, got %d calls", next.promotions)
	}

	if len(logs.All()) != 1 {
		t.Fatalf("expected one log entry, got %d", len(logs.All()))
	}
}

func TestRecorderToleratesNilWrappedRecorderAndLogger(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil, nil)

	r.ObserveTransition(platform.TaskHandle(1), mlfq.High, mlfq.Medium)
	r.ObserveBoost(1, 1)
	r.ObservePromotion(platform.TaskHandle(1), mlfq.Low, mlfq.High)
}
