package handoff

// Receiver is the render thread's end of the UI texture handoff. It keeps
// drawing the last handle it took until a newer one is published, then
// retires the old one behind the fence of the last frame that read it.
//
// A handle is in at most one place at a time: published in the Cell,
// retained here, waiting in the Trash, or queued for release.
type Receiver struct {
	cell    *Cell
	trash   *Trash
	release *ReleaseQueue

	current uint32
	fence   Fence
}

func NewReceiver(cell *Cell, release *ReleaseQueue) *Receiver {
	return &Receiver{
		cell:    cell,
		trash:   NewTrash(),
		release: release,
	}
}

// Acquire returns the handle to draw this frame. It is the newest published
// handle if there is one, otherwise the handle retained from earlier frames.
// Zero means no UI frame has arrived yet.
func (r *Receiver) Acquire() uint32 {
	h := r.cell.Consume()
	if h == 0 || h == r.current {
		return r.current
	}
	if r.current != 0 {
		r.trash.Retire(r.current, r.fence)
	} else if r.fence != nil {
		r.fence.Delete()
	}
	r.current = h
	r.fence = nil
	return r.current
}

// Current is the retained handle.
func (r *Receiver) Current() uint32 {
	return r.current
}

// SetFence tags the retained handle with the fence of the latest GPU work
// that reads it. A fence it replaces is deleted, since it completes no later
// than the new one.
func (r *Receiver) SetFence(f Fence) {
	if r.fence != nil && r.fence != f {
		r.fence.Delete()
	}
	r.fence = f
}

// Reclaim moves every retired handle whose fence has signaled to the release
// queue and returns how many moved. It never blocks.
func (r *Receiver) Reclaim() int {
	hs := r.trash.CollectDeletable()
	r.release.Push(hs...)
	return len(hs)
}

// Pending is the number of retired handles still waiting on a fence.
func (r *Receiver) Pending() int {
	return r.trash.Len()
}

// Close gives everything back to the UI side for shutdown: a handle published
// but never consumed goes straight to the release queue and the retained one
// is retired. The caller finishes outstanding GPU work and calls Reclaim.
func (r *Receiver) Close() {
	if h := r.cell.Consume(); h != 0 {
		r.release.Push(h)
	}
	if r.current != 0 {
		r.trash.Retire(r.current, r.fence)
	} else if r.fence != nil {
		r.fence.Delete()
	}
	r.current = 0
	r.fence = nil
}
