package gldevice

import (
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Fence is a GPU sync object. Polling it never blocks.
type Fence struct {
	sync uintptr
}

// NewFence inserts a fence after the commands issued so far and flushes
// them, so a poll from another context can see it signal.
func NewFence() *Fence {
	s := gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	gl.Flush()
	return &Fence{sync: s}
}

func (f *Fence) Signaled() bool {
	if f == nil || f.sync == 0 {
		return true
	}
	switch gl.ClientWaitSync(f.sync, 0, 0) {
	case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
		return true
	case gl.WAIT_FAILED:
		// A failed wait will never succeed later.
		return true
	default:
		return false
	}
}

// Wait blocks until the fence signals or timeout passes.
func (f *Fence) Wait(timeout time.Duration) bool {
	if f == nil || f.sync == 0 {
		return true
	}
	r := gl.ClientWaitSync(f.sync, gl.SYNC_FLUSH_COMMANDS_BIT, uint64(timeout.Nanoseconds()))
	return r == gl.ALREADY_SIGNALED || r == gl.CONDITION_SATISFIED
}

func (f *Fence) Delete() {
	if f == nil || f.sync == 0 {
		return
	}
	gl.DeleteSync(f.sync)
	f.sync = 0
}
