package metrics

import (
	"testing"

	"mlfq-scheduler/pkg/mlfq"
	"mlfq-scheduler/pkg/platform"
)

func TestExporterSnapshotReflectsSetLadder(t *testing.T) {
	t.Parallel()

	exporter := NewExporter()
	exporter.SetLadder([mlfq.LevelCount]uint64{mlfq.High: 1, mlfq.Medium: 2, mlfq.Low: 3})

	snap := exporter.snapshot()

	if snap.ladder[mlfq.High] != 1 || snap.ladder[mlfq.Medium] != 2 || snap.ladder[mlfq.Low] != 3 {
		t.Fatalf("unexpected ladder snapshot: %+v", snap.ladder)
	}
}

func TestExporterObserveCountsOccupancyPerLevel(t *testing.T) {
	t.Parallel()

	exporter := NewExporter()

	exporter.Observe(
		[]mlfq.Entry{
			{Handle: platform.TaskHandle(1), Level: mlfq.Low},
			{Handle: platform.TaskHandle(2), Level: mlfq.Low},
			{Handle: platform.TaskHandle(3), Level: mlfq.High},
		},
		8,
		mlfq.Stats{},
	)

	snap := exporter.snapshot()

	if snap.occupancy[mlfq.Low] != 2 {
		t.Fatalf("expected 2 tasks at Low, got %.0f", snap.occupancy[mlfq.Low])
	}

	if snap.occupancy[mlfq.High] != 1 {
		t.Fatalf("expected 1 task at High, got %.0f", snap.occupancy[mlfq.High])
	}

	if snap.occupied != 3 {
		t.Fatalf("expected occupied 3, got %.0f", snap.occupied)
	}

	if snap.capacity != 8 {
		t.Fatalf("expected capacity 8, got %.0f", snap.capacity)
	}
}

func TestExporterObserveOverwritesPreviousSnapshot(t *testing.T) {
	t.Parallel()

	exporter := NewExporter()

	exporter.Observe([]mlfq.Entry{{Handle: platform.TaskHandle(1), Level: mlfq.Low}}, 4, mlfq.Stats{Demotions: 1})
	exporter.Observe(nil, 4, mlfq.Stats{})

	snap := exporter.snapshot()

	if snap.occupied != 0 {
		t.Fatalf("expected occupied reset to 0, got %.0f", snap.occupied)
	}

	if snap.occupancy[mlfq.Low] != 0 {
		t.Fatalf("expected Low occupancy reset to 0, got %.0f", snap.occupancy[mlfq.Low])
	}

	if snap.demotions != 0 {
		t.Fatalf("expected demotions reset to 0, got %.0f", snap.demotions)
	}
}
