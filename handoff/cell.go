// Package handoff moves GPU texture handles between the UI producing thread
// and the render thread without either side ever blocking on the other.
package handoff

import (
	"math"
	"sync/atomic"
)

// Cell is a single-slot, last-write-wins exchange of a texture handle.
// Zero is the empty handle.
type Cell struct {
	v atomic.Uint32
}

// Publish stores h and returns whatever handle was published before it and
// not yet consumed. A non-zero result was never seen by the consumer, so the
// publisher still owns it.
func (c *Cell) Publish(h uint32) uint32 {
	return c.v.Swap(h)
}

// Consume takes the most recently published handle, leaving the cell empty.
// It returns 0 when nothing new was published since the last call.
func (c *Cell) Consume() uint32 {
	return c.v.Swap(0)
}

// Vec2Cell holds a pair of float32 values (the pointer position) that is
// written by the input side and read by the UI side.
type Vec2Cell struct {
	v atomic.Uint64
}

func (c *Vec2Cell) Store(x, y float32) {
	c.v.Store(uint64(math.Float32bits(x))<<32 | uint64(math.Float32bits(y)))
}

func (c *Vec2Cell) Load() (x, y float32) {
	bits := c.v.Load()
	return math.Float32frombits(uint32(bits >> 32)), math.Float32frombits(uint32(bits))
}
