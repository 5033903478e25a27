package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"mlfq-scheduler/pkg/mlfq"
)

const contentType = "application/openmetrics-text; version=1.0.0; charset=utf-8"

var errNilWriter = errors.New("metrics: writer is nil")

// Exporter tracks policy metrics and exposes them via HTTP as OpenMetrics
// text: per-level occupancy, the configured quantum ladder, and the
// scheduler manager's running demotion/boost/dropped-event counters.
type Exporter struct {
	mu sync.RWMutex

	occupancy [mlfq.LevelCount]float64
	ladder    [mlfq.LevelCount]float64

	capacity float64
	occupied float64

	demotions float64
	boosts    float64
	dropped   float64
}

// NewExporter constructs an Exporter with zeroed metrics.
func NewExporter() *Exporter {
	return new(Exporter)
}

// SetLadder records the configured per-level quantum, in host ticks. Set
// once at startup; the ladder does not change at runtime.
func (e *Exporter) SetLadder(ladder [mlfq.LevelCount]uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for level := 0; level < mlfq.LevelCount; level++ {
		e.ladder[level] = float64(ladder[level])
	}
}

// Observe records a full snapshot pulled from the policy: how many tasks
// occupy each band, the table's capacity and current occupancy, and the
// manager's running counters.
func (e *Exporter) Observe(entries []mlfq.Entry, capacity int, stats mlfq.Stats) {
	var occupancy [mlfq.LevelCount]float64

	for _, entry := range entries {
		if entry.Level.Valid() {
			occupancy[entry.Level]++
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.occupancy = occupancy
	e.capacity = float64(capacity)
	e.occupied = float64(len(entries))
	e.demotions = float64(stats.Demotions)
	e.boosts = float64(stats.Boosts)
	e.dropped = float64(stats.Dropped)
}

// ServeHTTP implements http.Handler for the metrics exporter.
func (e *Exporter) ServeHTTP(writer http.ResponseWriter, _ *http.Request) {
	data, err := e.Render()
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)

		return
	}

	writer.Header().Set("Content-Type", contentType)
	_, _ = writer.Write(data)
}

// Render returns the current metrics snapshot encoded as OpenMetrics text.
func (e *Exporter) Render() ([]byte, error) {
	var buffer bytes.Buffer

	_, err := e.WriteTo(&buffer)
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// WriteTo writes the current metrics snapshot to the provided writer.
func (e *Exporter) WriteTo(dst io.Writer) (int64, error) {
	if dst == nil {
		return 0, errNilWriter
	}

	snapshot := e.snapshot()

	lines := []string{
		"# HELP mlfq_task_capacity Configured task table slot count.\n",
		"# TYPE mlfq_task_capacity gauge\n",
		fmt.Sprintf("mlfq_task_capacity %.0f\n", snapshot.capacity),
		"# HELP mlfq_task_occupied Number of task table slots currently occupied.\n",
		"# TYPE mlfq_task_occupied gauge\n",
		fmt.Sprintf("mlfq_task_occupied %.0f\n", snapshot.occupied),
		"# HELP mlfq_level_occupancy Number of tasks currently occupying each band.\n",
		"# TYPE mlfq_level_occupancy gauge\n",
	}

	for level := 0; level < mlfq.LevelCount; level++ {
		lines = append(lines, fmt.Sprintf(
			"mlfq_level_occupancy{level=\"%s\"} %.0f\n",
			mlfq.Level(level), snapshot.occupancy[level],
		))
	}

	lines = append(lines,
		"# HELP mlfq_level_quantum_ticks Configured quantum, in host ticks, for each band.\n",
		"# TYPE mlfq_level_quantum_ticks gauge\n",
	)

	for level := 0; level < mlfq.LevelCount; level++ {
		lines = append(lines, fmt.Sprintf(
			"mlfq_level_quantum_ticks{level=\"%s\"} %.0f\n",
			mlfq.Level(level), snapshot.ladder[level],
		))
	}

	lines = append(lines,
		"# HELP mlfq_demotions_total Total tasks demoted for exhausting a quantum.\n",
		"# TYPE mlfq_demotions_total counter\n",
		fmt.Sprintf("mlfq_demotions_total %.0f\n", snapshot.demotions),
		"# HELP mlfq_boosts_total Total global boosts performed.\n",
		"# TYPE mlfq_boosts_total counter\n",
		fmt.Sprintf("mlfq_boosts_total %.0f\n", snapshot.boosts),
		"# HELP mlfq_dropped_events_total Total quantum-exhaustion events dropped for lack of buffer space.\n",
		"# TYPE mlfq_dropped_events_total counter\n",
		fmt.Sprintf("mlfq_dropped_events_total %.0f\n", snapshot.dropped),
		"# EOF\n",
	)

	var total int64

	for _, line := range lines {
		n, err := io.WriteString(dst, line)

		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write metrics: %w", err)
		}
	}

	return total, nil
}

type exporterSnapshot struct {
	occupancy [mlfq.LevelCount]float64
	ladder    [mlfq.LevelCount]float64
	capacity  float64
	occupied  float64
	demotions float64
	boosts    float64
	dropped   float64
}

func (e *Exporter) snapshot() exporterSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return exporterSnapshot{
		occupancy: e.occupancy,
		ladder:    e.ladder,
		capacity:  e.capacity,
		occupied:  e.occupied,
		demotions: e.demotions,
		boosts:    e.boosts,
		dropped:   e.dropped,
	}
}
