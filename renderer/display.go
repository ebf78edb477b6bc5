package renderer

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Eye is one view of the scene for the current frame.
type Eye struct {
	// Viewport is x, y, width, height in the display framebuffer.
	Viewport   [4]int32
	Projection mgl32.Mat4
	View       mgl32.Mat4
	// Position is the tracked eye position in meters.
	Position mgl32.Vec3
}

// RayTransform maps clip space positions on the far plane onto view ray
// directions, ignoring the eye's translation.
func (e Eye) RayTransform() mgl32.Mat4 {
	rot := e.View
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	return e.Projection.Mul4(rot).Inv()
}

// Display delivers head pose and per-eye viewports. A head-mounted display
// has two eyes; the desktop has one.
type Display interface {
	// RecommendedSize is the full resolution offscreen size for one eye.
	RecommendedSize() (int, int)
	Eyes() []Eye
	Recenter()
}

// DesktopDisplay is a single eye covering the window, looking around with
// yaw and pitch instead of head tracking.
type DesktopDisplay struct {
	FOV         float32
	framebuffer func() (int, int)

	mu         sync.Mutex
	yaw, pitch float32
}

func NewDesktopDisplay(framebuffer func() (int, int)) *DesktopDisplay {
	return &DesktopDisplay{
		FOV:         mgl32.DegToRad(75),
		framebuffer: framebuffer,
	}
}

func (d *DesktopDisplay) RecommendedSize() (int, int) {
	w, h := d.framebuffer()
	return max(w, 1), max(h, 1)
}

// Turn rotates the view. Pitch is clamped to straight up and down.
func (d *DesktopDisplay) Turn(dyaw, dpitch float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.yaw += dyaw
	d.pitch = mgl32.Clamp(d.pitch+dpitch, -mgl32.DegToRad(89), mgl32.DegToRad(89))
}

func (d *DesktopDisplay) Recenter() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.yaw, d.pitch = 0, 0
}

func (d *DesktopDisplay) Eyes() []Eye {
	w, h := d.RecommendedSize()
	d.mu.Lock()
	view := mgl32.HomogRotate3DX(-d.pitch).Mul4(mgl32.HomogRotate3DY(-d.yaw))
	d.mu.Unlock()
	return []Eye{{
		Viewport:   [4]int32{0, 0, int32(w), int32(h)},
		Projection: mgl32.Perspective(d.FOV, float32(w)/float32(h), 0.01, 100),
		View:       view,
	}}
}
