package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mlfq-scheduler/pkg/mlfq"
	"mlfq-scheduler/pkg/platform"
)

const (
	simDriverTaskCount = 3

	// interactiveTaskIndex names the one demo task the driver's trivial
	// fixed heuristic treats as interactive; a real classifier would judge
	// this from the task's own behavior instead of a hardcoded index.
	interactiveTaskIndex = 0

	// promoteEveryTicks is how often the fixed heuristic promotes the
	// interactive demo task, independent of the manager's own boost cycle.
	promoteEveryTicks = 50
)

// tickable is the subset of platform.Sim/platform.Linux's concrete API a
// synthetic workload driver needs: attributing the next tick to a task and
// advancing the tick counter. Neither method is part of the Platform
// interface the policy itself depends on; they exist purely so something
// outside the policy can stand in for the host timer ISR and scheduler.
type tickable interface {
	SetRunning(h platform.TaskHandle)
	Tick()
}

// runSimDriver registers a handful of always-runnable demo tasks and
// round-robins them through the kernel's tick hook, giving -mode simulate
// something to schedule without any real workload or hardware.
func runSimDriver(ctx context.Context, kernel platform.Platform, policy *mlfq.Policy, logger *zap.Logger) {
	driver, ok := kernel.(tickable)
	if !ok {
		logger.Warn("simulate mode requires a tickable platform binding; skipping synthetic workload")

		return
	}

	tasks := make([]platform.TaskHandle, 0, simDriverTaskCount)

	for i := 0; i < simDriverTaskCount; i++ {
		name := fmt.Sprintf("demo-%d", i)

		h, err := kernel.CreateTask(name, 0, func(taskCtx context.Context, self platform.TaskHandle) {
			<-taskCtx.Done()
		})
		if err != nil {
			logger.Error("failed to create demo task", zap.String("name", name), zap.Error(err))

			continue
		}

		if outcome := policy.Register(h); outcome != mlfq.RegisterOK {
			logger.Warn("failed to register demo task", zap.String("name", name), zap.String("outcome", outcome.String()))

			continue
		}

		tasks = append(tasks, h)
	}

	if len(tasks) == 0 {
		logger.Warn("no demo tasks registered; simulate mode has nothing to schedule")

		return
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	var next int

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			driver.SetRunning(tasks[next%len(tasks)])
			driver.Tick()
			next++

			promoteInteractiveTask(next, tasks, policy, logger)
		}
	}
}

// promoteInteractiveTask is the trivial fixed heuristic -mode simulate uses
// to exercise Policy.Promote end-to-end: it periodically promotes the one
// demo task the driver labels interactive, entirely outside pkg/mlfq's own
// contract, the way a host application's own classifier would.
func promoteInteractiveTask(tick int, tasks []platform.TaskHandle, policy *mlfq.Policy, logger *zap.Logger) {
	if interactiveTaskIndex >= len(tasks) {
		return
	}

	if tick%promoteEveryTicks != 0 {
		return
	}

	h := tasks[interactiveTaskIndex]

	if err := policy.Promote(h); err != nil {
		logger.Warn("failed to promote interactive demo task", zap.Error(err))
	}
}
