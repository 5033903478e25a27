package mlfq

import (
	"errors"

	"mlfq-scheduler/pkg/platform"
)

// RegisterOutcome reports how Register resolved.
type RegisterOutcome int

const (
	RegisterOK RegisterOutcome = iota
	RegisterFull
	RegisterDuplicate
)

// String renders the outcome for logging.
func (o RegisterOutcome) String() string {
	switch o {
	case RegisterOK:
		return "ok"
	case RegisterFull:
		return "full"
	case RegisterDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// ErrSlotNotFound is returned by operations addressing a handle the table
// has no occupied slot for.
var ErrSlotNotFound = errors.New("mlfq: no task table slot for handle")

// Entry is a read-only snapshot of one occupied task table slot.
type Entry struct {
	Handle  platform.TaskHandle
	Level   Level
	Burst   uint64
	Quantum uint64
}

type slot struct {
	occupied bool
	handle   platform.TaskHandle
	level    Level
	burst    uint64
}

// Table is the fixed-size registry of every task the policy manages: its
// current band, its burst-so-far in ticks within that band, and (derived)
// the host priority it was last assigned. Every mutation is serialized
// through the owning Platform's critical section rather than a table-local
// mutex, matching the host contract that ISR and task-context accesses
// race on the same underlying resource.
type Table struct {
	kernel platform.Platform
	cfg    Config
	slots  []slot
	index  map[platform.TaskHandle]int
}

// NewTable allocates a table sized from cfg.MaxTasks.
func NewTable(kernel platform.Platform, cfg Config) *Table {
	return &Table{
		kernel: kernel,
		cfg:    cfg,
		slots:  make([]slot, cfg.MaxTasks),
		index:  make(map[platform.TaskHandle]int, cfg.MaxTasks),
	}
}

// Capacity returns the number of slots the table was allocated with.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// Register admits h at the top band, High, assigning it the corresponding
// host priority. RegisterDuplicate is returned for a handle already
// present; RegisterFull when every slot is occupied.
func (t *Table) Register(h platform.TaskHandle) RegisterOutcome {
	exit := t.kernel.EnterCritical()
	defer exit()

	if _, ok := t.index[h]; ok {
		return RegisterDuplicate
	}

	for i := range t.slots {
		if t.slots[i].occupied {
			continue
		}

		t.slots[i] = slot{occupied: true, handle: h, level: High, burst: 0}
		t.index[h] = i

		_ = t.kernel.SetPriority(h, High.HostPriority(t.cfg.TopPriority))

		return RegisterOK
	}

	return RegisterFull
}

// Unregister removes h from the table, freeing its slot. A no-op if h is
// not present.
func (t *Table) Unregister(h platform.TaskHandle) {
	exit := t.kernel.EnterCritical()
	defer exit()

	i, ok := t.index[h]
	if !ok {
		return
	}

	t.slots[i] = slot{}
	delete(t.index, h)
}

// Find returns a snapshot of h's slot.
func (t *Table) Find(h platform.TaskHandle) (Entry, bool) {
	exit := t.kernel.EnterCritical()
	defer exit()

	i, ok := t.index[h]
	if !ok {
		return Entry{}, false
	}

	return t.entryLocked(i), true
}

// Snapshot returns every occupied slot, in slot order.
func (t *Table) Snapshot() []Entry {
	exit := t.kernel.EnterCritical()
	defer exit()

	entries := make([]Entry, 0, len(t.slots))

	for i := range t.slots {
		if t.slots[i].occupied {
			entries = append(entries, t.entryLocked(i))
		}
	}

	return entries
}

// ForEachOccupied invokes fn for every occupied slot, inside a single
// critical section. fn must not call back into the Table.
func (t *Table) ForEachOccupied(fn func(Entry)) {
	exit := t.kernel.EnterCritical()
	defer exit()

	for i := range t.slots {
		if t.slots[i].occupied {
			fn(t.entryLocked(i))
		}
	}
}

func (t *Table) entryLocked(i int) Entry {
	s := t.slots[i]

	return Entry{
		Handle:  s.handle,
		Level:   s.level,
		Burst:   s.burst,
		Quantum: t.cfg.Ladder[s.level],
	}
}

// SetLevel is the table's single mutator of a task's band: it updates the
// slot's level, resets its burst counter to zero, and retunes the host
// priority to match (a task's host priority always matches its
// current band).
func (t *Table) SetLevel(h platform.TaskHandle, level Level) error {
	exit := t.kernel.EnterCritical()
	defer exit()

	i, ok := t.index[h]
	if !ok {
		return ErrSlotNotFound
	}

	t.slots[i].level = level
	t.slots[i].burst = 0

	return t.kernel.SetPriority(h, level.HostPriority(t.cfg.TopPriority))
}

// IncrementBurst adds one tick to h's burst-so-far and reports the updated
// total along with h's current level and configured quantum. Called from
// ISR context by the tick profiler, so it must not allocate beyond the
// critical section's own bookkeeping.
func (t *Table) IncrementBurst(h platform.TaskHandle) (burst uint64, level Level, quantum uint64, ok bool) {
	exit := t.kernel.EnterCritical()
	defer exit()

	i, found := t.index[h]
	if !found {
		return 0, 0, 0, false
	}

	t.slots[i].burst++

	return t.slots[i].burst, t.slots[i].level, t.cfg.Ladder[t.slots[i].level], true
}

// QuantumOf returns the tick quantum configured for level.
func (t *Table) QuantumOf(level Level) uint64 {
	return t.cfg.Ladder[level]
}

// LevelOf returns h's current band.
func (t *Table) LevelOf(h platform.TaskHandle) (Level, bool) {
	exit := t.kernel.EnterCritical()
	defer exit()

	i, ok := t.index[h]
	if !ok {
		return 0, false
	}

	return t.slots[i].level, true
}
