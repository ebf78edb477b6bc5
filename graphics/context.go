package graphics

// Context is an OpenGL context bound to a window or a hidden surface.
type Context interface {
	MakeCurrent()
	DetachCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame presents the back buffer and processes pending events.
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
}
