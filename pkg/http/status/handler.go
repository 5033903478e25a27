package status

import (
	"encoding/json"
	"net/http"

	"mlfq-scheduler/pkg/mlfq"
)

// Source exposes the policy surface the status handler renders. It is
// satisfied directly by *mlfq.Policy.
type Source interface {
	Snapshot() []mlfq.Entry
	Stats() mlfq.Stats
	Capacity() int
}

// TaskStatus is one task table slot as rendered in the status response.
type TaskStatus struct {
	Handle  uint64 `json:"handle"`
	Level   string `json:"level"`
	Burst   uint64 `json:"burst"`
	Quantum uint64 `json:"quantum"`
}

// Snapshot captures the policy status returned by the handler.
type Snapshot struct {
	Capacity  int          `json:"capacity"`
	Occupied  int          `json:"occupied"`
	Demotions uint64       `json:"demotions"`
	Boosts    uint64       `json:"boosts"`
	Dropped   uint64       `json:"droppedEvents"`
	Tasks     []TaskStatus `json:"tasks"`
}

// Handler renders policy status as JSON.
type Handler struct {
	source Source
}

// NewHandler constructs a Handler that proxies policy status.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, _ *http.Request) {
	if h == nil || h.source == nil {
		http.Error(writer, "policy unavailable", http.StatusServiceUnavailable)

		return
	}

	entries := h.source.Snapshot()
	stats := h.source.Stats()

	tasks := make([]TaskStatus, 0, len(entries))
	for _, e := range entries {
		tasks = append(tasks, TaskStatus{
			Handle:  uint64(e.Handle),
			Level:   e.Level.String(),
			Burst:   e.Burst,
			Quantum: e.Quantum,
		})
	}

	snapshot := Snapshot{
		Capacity:  h.source.Capacity(),
		Occupied:  len(tasks),
		Demotions: stats.Demotions,
		Boosts:    stats.Boosts,
		Dropped:   stats.Dropped,
		Tasks:     tasks,
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		http.Error(writer, "marshal status", http.StatusInternalServerError)

		return
	}

	writer.Header().Set("Content-Type", "application/json")
	_, _ = writer.Write(payload)
}
