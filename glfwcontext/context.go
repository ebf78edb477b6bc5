package glfwcontext

import (
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

type Config struct {
	Width   int
	Height  int
	Title   string
	Visible bool
}

// Binding is a key with the modifiers that must be held.
type Binding struct {
	Key  glfw.Key
	Mods glfw.ModifierKey
}

// Context is a GLFW window and its OpenGL 4.1 core context.
type Context struct {
	window       *glfw.Window
	keyCallbacks map[Binding]func()
	onCursor     func(x, y float32)
}

// New creates a window. With share set, the new context shares textures
// and other objects with it.
func New(cfg Config, share *Context) (*Context, error) {
	var sharecontext *glfw.Window
	if share != nil {
		sharecontext = share.window
	}
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if cfg.Visible {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, sharecontext)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[Binding]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetCursorPosCallback(c.glfwCursorPosCallback)
	return c, nil
}

// RegisterKeyCallback runs f on the main thread when key is pressed with
// exactly mods held. Repeats count as presses.
func (c *Context) RegisterKeyCallback(key glfw.Key, mods glfw.ModifierKey, f func()) {
	c.keyCallbacks[Binding{Key: key, Mods: mods}] = f
}

// OnCursor runs f with the pointer position in normalized device
// coordinates whenever it moves.
func (c *Context) OnCursor(f func(x, y float32)) {
	c.onCursor = f
}

const modMask = glfw.ModShift | glfw.ModControl | glfw.ModAlt | glfw.ModSuper

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press || action == glfw.Repeat {
		if callback, ok := c.keyCallbacks[Binding{Key: key, Mods: mods & modMask}]; ok {
			callback()
		}
	}
}

func (c *Context) glfwCursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if c.onCursor == nil {
		return
	}
	width, height := w.GetSize()
	c.onCursor(ToNDC(xpos, ypos, width, height))
}

// ToNDC maps a window position (origin top left, y down) to normalized
// device coordinates (origin center, y up). Positions outside the window
// are clamped to its edge.
func ToNDC(x, y float64, width, height int) (float32, float32) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	nx := 2*x/float64(width) - 1
	ny := 1 - 2*y/float64(height)
	return float32(clamp(nx)), float32(clamp(ny))
}

func clamp(v float64) float64 {
	return min(max(v, -1), 1)
}

func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// DetachCurrent makes no context current on the calling thread.
func (c *Context) DetachCurrent() {
	glfw.DetachCurrentContext()
}

func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// SetSwapInterval sets vsync for the current context.
func SetSwapInterval(n int) {
	glfw.SwapInterval(n)
}

// InitGraphics initializes GLFW. Must be called from the main thread.
func InitGraphics(log *zap.Logger) error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Info("GLFW initialized", zap.String("version", glfw.GetVersionString()))
	return nil
}

// TerminateGraphics shuts GLFW down. Must be called from the main thread.
func TerminateGraphics(log *zap.Logger) {
	glfw.Terminate()
	log.Info("GLFW terminated")
}
