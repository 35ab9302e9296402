package scheduler

import (
	"sort"
	"sync"
)

// historyRing is a fixed-capacity circular buffer of finalized executions for
// one task. Eviction is O(1): when full, the next append overwrites the
// oldest entry.
type historyRing struct {
	buf  []Execution
	head int // index of the oldest entry
	n    int
}

func newHistoryRing(capacity int) *historyRing {
	return &historyRing{buf: make([]Execution, capacity)}
}

func (r *historyRing) append(e Execution) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = e
		r.n++
		return
	}
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
}

// appendTo copies the ring's entries, oldest first, onto dst.
func (r *historyRing) appendTo(dst []Execution) []Execution {
	for i := 0; i < r.n; i++ {
		dst = append(dst, r.buf[(r.head+i)%len(r.buf)])
	}
	return dst
}

// historyBuf holds per-task rings behind one mutex. Executions are appended
// exactly once, after finalization, and never mutated afterwards.
type historyBuf struct {
	mu       sync.Mutex
	perTask  int
	rings    map[string]*historyRing
	appended uint64 // global append sequence for cross-task ordering
}

func newHistoryBuf(perTask int) *historyBuf {
	return &historyBuf{perTask: perTask, rings: make(map[string]*historyRing)}
}

func (h *historyBuf) Append(e Execution) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.appended++
	e.seq = h.appended

	r := h.rings[e.Task]
	if r == nil {
		r = newHistoryRing(h.perTask)
		h.rings[e.Task] = r
	}
	r.append(e)
}

// SnapshotTask returns copies of one task's entries, oldest first.
func (h *historyBuf) SnapshotTask(name string) []Execution {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rings[name]
	if r == nil {
		return nil
	}
	return r.appendTo(make([]Execution, 0, r.n))
}

// Snapshot returns copies of all entries across tasks in append order.
func (h *historyBuf) Snapshot() []Execution {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, r := range h.rings {
		total += r.n
	}
	out := make([]Execution, 0, total)
	for _, r := range h.rings {
		out = r.appendTo(out)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Len reports how many entries are currently retained for name.
func (h *historyBuf) Len(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r := h.rings[name]; r != nil {
		return r.n
	}
	return 0
}
