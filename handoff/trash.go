package handoff

// Fence is a GPU completion token. Signaled must never block.
type Fence interface {
	Signaled() bool
	Delete()
}

type trashEntry struct {
	handle uint32
	fence  Fence
}

// Trash is the ordered list of handles that are no longer displayed but may
// still be read by GPU work submitted before their fence. Fences complete in
// submission order, so the list is drained from the head and stops at the
// first entry that is still pending.
//
// Trash belongs to the render thread, which owns the fences.
type Trash struct {
	entries []trashEntry
	queued  map[uint32]struct{}
}

func NewTrash() *Trash {
	return &Trash{queued: make(map[uint32]struct{})}
}

// Retire queues h behind fence. A nil fence counts as already signaled.
// It reports false, and takes no ownership of fence, when h is the empty
// handle or is already queued.
func (t *Trash) Retire(h uint32, fence Fence) bool {
	if h == 0 {
		return false
	}
	if _, ok := t.queued[h]; ok {
		return false
	}
	t.queued[h] = struct{}{}
	t.entries = append(t.entries, trashEntry{handle: h, fence: fence})
	return true
}

// CollectDeletable removes and returns, in retirement order, every handle
// at the head of the list whose fence has signaled.
func (t *Trash) CollectDeletable() []uint32 {
	var out []uint32
	n := 0
	for _, e := range t.entries {
		if e.fence != nil {
			if !e.fence.Signaled() {
				break
			}
			e.fence.Delete()
		}
		delete(t.queued, e.handle)
		out = append(out, e.handle)
		n++
	}
	if n > 0 {
		rest := copy(t.entries, t.entries[n:])
		clear(t.entries[rest:])
		t.entries = t.entries[:rest]
	}
	return out
}

// Len is the number of handles still waiting on their fence.
func (t *Trash) Len() int {
	return len(t.entries)
}

// Contains reports whether h is waiting in the list.
func (t *Trash) Contains(h uint32) bool {
	_, ok := t.queued[h]
	return ok
}
