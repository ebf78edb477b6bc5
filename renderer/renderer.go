package renderer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadertoyvr/document"
	"github.com/richinsley/goshadertoyvr/handoff"
	"github.com/richinsley/goshadertoyvr/inputs"
	"github.com/richinsley/goshadertoyvr/shader"
	"github.com/richinsley/goshadertoyvr/uniforms"
	"go.uber.org/zap"
)

// SceneParams is what the backend needs to draw the shader for one eye.
type SceneParams struct {
	Program *shader.Program
	Actions []uniforms.Action
	Values  uniforms.FrameValues
	Ray     mgl32.Mat4
	// Size is the scaled viewport inside the offscreen target.
	Size [2]int
	// Target is the full size of the offscreen target.
	Target [2]int
}

// PresentParams is what the backend needs to draw one eye's view of the
// offscreen scene and the UI surface.
type PresentParams struct {
	Eye       Eye
	Immersive bool
	// UVScale is the fraction of the offscreen target the scene covers.
	UVScale float32
	Gallery [GalleryCopies]mgl32.Mat4
	ShowUI  bool
	UIModel mgl32.Mat4
}

// Backend performs the GPU work of a frame. All methods run on the render
// thread.
type Backend interface {
	// BeginFrame sets the fixed pipeline state and clears the targets.
	BeginFrame()
	RenderScene(eye int, p SceneParams)
	// CompositeUI draws the UI texture and the pointer sprite into the UI
	// surface and returns a fence that signals once the texture is no
	// longer read.
	CompositeUI(texture uint32, cursor mgl32.Mat4) handoff.Fence
	Present(eye int, p PresentParams)
	EndFrame()
	// Finish blocks until all submitted GPU work is complete.
	Finish()
}

// Notifier receives the events the UI reflects.
type Notifier interface {
	CompileSucceeded()
	CompileFailed(log string)
	FPS(fps float32)
	ResolutionScale(scale float32)
	PositionScale(scale float32)
}

// Presets is the bundled catalog of shader documents.
type Presets interface {
	Len() int
	Load(i int) (*document.Shader, error)
}

type Config struct {
	ResolutionScale float32
	PositionScale   float32
	// UIAspect is width over height of the UI surface.
	UIAspect float32
	// ShaderDir is where SaveDocument writes.
	ShaderDir string
}

// Renderer runs the frame loop on the render thread. Methods named after
// user actions may be called from any thread; they post tasks that run at
// the start of the next frame.
type Renderer struct {
	session  *Session
	log      *zap.Logger
	backend  Backend
	display  Display
	builder  *shader.Builder
	channels *inputs.Channels
	binder   *uniforms.Binder
	receiver *handoff.Receiver
	notify   Notifier
	presets  Presets
	cfg      Config
	now      func() time.Time

	// Render thread state.
	actions            []uniforms.Action
	doc                document.Shader
	resolutionScale    float32
	positionScale      float32
	savedPositionScale float32
	position           mgl32.Vec3
	uiVisible          bool
	uiComposited       bool

	presetIndex atomic.Int32

	frames   int
	fpsSince time.Time
	lastFPS  float32
}

func New(s *Session, backend Backend, display Display, builder *shader.Builder, channels *inputs.Channels, notify Notifier, presets Presets, cfg Config) *Renderer {
	if cfg.ResolutionScale == 0 {
		cfg.ResolutionScale = 1
	}
	if cfg.PositionScale == 0 {
		cfg.PositionScale = 1
	}
	if cfg.UIAspect == 0 {
		cfg.UIAspect = 16.0 / 9.0
	}
	r := &Renderer{
		session:         s,
		log:             s.Log,
		backend:         backend,
		display:         display,
		builder:         builder,
		channels:        channels,
		binder:          uniforms.NewBinder(s.Log),
		receiver:        handoff.NewReceiver(s.UI, s.Release),
		notify:          notify,
		presets:         presets,
		cfg:             cfg,
		now:             time.Now,
		resolutionScale: ClampScale(cfg.ResolutionScale),
		positionScale:   cfg.PositionScale,
	}
	r.presetIndex.Store(-1)
	r.fpsSince = r.now()
	builder.OnBuild(func(*shader.Program) { r.rebuildActions() })
	s.Metrics.SetResolutionScale(float64(r.resolutionScale))
	return r
}

func (r *Renderer) rebuildActions() {
	r.actions = r.binder.Rebuild(r.builder.Current(), r.channels.Slots())
}

// --- Posted actions ---

func (r *Renderer) post(name string, fn func() error) {
	r.session.Tasks.Post(name, fn)
}

func (r *Renderer) SetShaderSource(src string) {
	r.post("set-shader-source", func() error { return r.applySource(src) })
}

func (r *Renderer) SetChannel(slot int, kind document.Kind, id string) {
	r.post(fmt.Sprintf("set-channel-%d", slot), func() error { return r.applyChannel(slot, kind, id) })
}

func (r *Renderer) LoadDocument(doc *document.Shader) {
	d := *doc
	r.post("load-document", func() error { return r.applyDocument(&d) })
}

// ModifyResolutionScale multiplies the current resolution scale by f.
func (r *Renderer) ModifyResolutionScale(f float32) {
	r.post("resolution-scale", func() error {
		r.resolutionScale = ClampScale(f * r.resolutionScale)
		r.session.Metrics.SetResolutionScale(float64(r.resolutionScale))
		r.notify.ResolutionScale(r.resolutionScale)
		return nil
	})
}

// ModifyPositionScale multiplies the current position scale by f.
func (r *Renderer) ModifyPositionScale(f float32) {
	r.post("position-scale", func() error {
		r.positionScale *= f
		r.notify.PositionScale(r.positionScale)
		return nil
	})
}

func (r *Renderer) ResetPositionScale() {
	r.post("reset-position-scale", func() error {
		r.positionScale = 1
		r.notify.PositionScale(r.positionScale)
		return nil
	})
}

// MovePosition offsets the viewer position, as six degree of freedom
// input devices do.
func (r *Renderer) MovePosition(delta mgl32.Vec3) {
	r.post("move-position", func() error {
		r.position = r.position.Add(delta)
		return nil
	})
}

func (r *Renderer) RestartTime() {
	r.post("restart-time", func() error {
		r.builder.RestartTime()
		return nil
	})
}

// ToggleUI shows or hides the UI. While the UI shows, the position scale is
// zero so head movement does not move through the scene.
func (r *Renderer) ToggleUI() {
	r.post("toggle-ui", func() error {
		r.uiVisible = !r.uiVisible
		if r.uiVisible {
			r.savedPositionScale = r.positionScale
			r.positionScale = 0
		} else {
			r.positionScale = r.savedPositionScale
		}
		r.session.UIVisible.Store(r.uiVisible)
		return nil
	})
}

func (r *Renderer) Recenter() {
	r.post("recenter", func() error {
		r.display.Recenter()
		return nil
	})
}

// LoadPreset loads bundled preset i on the calling thread and posts it.
func (r *Renderer) LoadPreset(i int) error {
	if !r.hasPresets() {
		return errNoPresets
	}
	if i < 0 || i >= r.presets.Len() {
		return fmt.Errorf("preset %d out of range [0, %d)", i, r.presets.Len())
	}
	doc, err := r.presets.Load(i)
	if err != nil {
		return fmt.Errorf("failed to load preset %d: %w", i, err)
	}
	r.presetIndex.Store(int32(i))
	r.LoadDocument(doc)
	return nil
}

var errNoPresets = errors.New("no presets available")

func (r *Renderer) hasPresets() bool {
	return r.presets != nil && r.presets.Len() > 0
}

func (r *Renderer) NextPreset() error {
	if !r.hasPresets() {
		return errNoPresets
	}
	n := r.presets.Len()
	return r.LoadPreset((int(r.presetIndex.Load()) + 1) % n)
}

func (r *Renderer) PreviousPreset() error {
	if !r.hasPresets() {
		return errNoPresets
	}
	n := r.presets.Len()
	i := int(r.presetIndex.Load())
	if i < 0 {
		i = 0
	}
	return r.LoadPreset((i + n - 1) % n)
}

// PresetIndex is the last preset loaded, or -1.
func (r *Renderer) PresetIndex() int {
	return int(r.presetIndex.Load())
}

// SaveDocument writes the active shader document as XML named name in the
// configured shader directory.
func (r *Renderer) SaveDocument(name string) {
	r.post("save-document", func() error {
		if name == "" {
			return errors.New("shader name is empty")
		}
		doc := r.doc
		doc.Name = name
		r.doc.Name = name
		path := filepath.Join(r.cfg.ShaderDir, name+".xml")
		go func() {
			if err := document.Save(path, &doc); err != nil {
				r.log.Error("Failed to save shader", zap.String("path", path), zap.Error(err))
				return
			}
			r.log.Info("Saved shader", zap.String("path", path))
		}()
		return nil
	})
}

// --- Render thread ---

// applySource compiles src. The viewer position returns to the origin when
// the shader changes.
func (r *Renderer) applySource(src string) error {
	r.doc.FragmentSource = src
	if _, err := r.builder.Build(src, r.channels.Targets()); err != nil {
		var ce *shader.CompileError
		if errors.As(err, &ce) {
			r.notify.CompileFailed(ce.Log)
		} else {
			r.notify.CompileFailed(err.Error())
		}
		return err
	}
	r.position = mgl32.Vec3{}
	r.notify.CompileSucceeded()
	return nil
}

// applyChannel updates a slot. The program is rebuilt when the slot's
// sampler type no longer matches, otherwise only the uniform actions are.
func (r *Renderer) applyChannel(slot int, kind document.Kind, id string) error {
	changed, err := r.channels.Set(slot, kind, id)
	if slot >= 0 && slot < document.MaxChannels {
		r.doc.Channels[slot] = document.Channel{Kind: kind, Source: id}
	}
	if !changed {
		return err
	}
	if p := r.builder.Current(); p != nil && p.Targets != r.channels.Targets() {
		r.log.Debug("Channel target changed, rebuilding shader", zap.Int("channel", slot))
		if berr := r.applySource(p.Source); berr != nil {
			r.rebuildActions()
			return errors.Join(err, berr)
		}
		return err
	}
	r.rebuildActions()
	return err
}

func (r *Renderer) applyDocument(doc *document.Shader) error {
	var errs []error
	for i, ch := range doc.Channels {
		if _, err := r.channels.Set(i, ch.Kind, ch.Source); err != nil {
			errs = append(errs, err)
		}
	}
	r.doc = *doc
	r.log.Info("Loading shader", zap.String("name", doc.Name))
	if err := r.applySource(doc.FragmentSource); err != nil {
		r.rebuildActions()
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RenderFrame runs one frame: pending tasks, clear, offscreen scene per
// eye, UI composite, reclaim, present.
func (r *Renderer) RenderFrame() {
	r.session.Tasks.RunAll(func(name string, err error) {
		r.log.Warn("Render task failed", zap.String("task", name), zap.Error(err))
		r.session.Metrics.TaskFailed(name)
	})

	r.backend.BeginFrame()

	fullW, fullH := r.display.RecommendedSize()
	w, h := ScaledSize(fullW, fullH, r.resolutionScale)
	eyes := r.display.Eyes()
	program := r.builder.Current()

	values := uniforms.FrameValues{
		Elapsed:    r.builder.Elapsed(),
		Resolution: [3]float32{float32(w), float32(h), 0},
	}
	if program != nil {
		for i, eye := range eyes {
			values.Position = eye.Position.Add(r.position).Mul(r.positionScale)
			r.backend.RenderScene(i, SceneParams{
				Program: program,
				Actions: r.actions,
				Values:  values,
				Ray:     eye.RayTransform(),
				Size:    [2]int{w, h},
				Target:  [2]int{fullW, fullH},
			})
		}
	}

	if r.uiVisible {
		if tex := r.receiver.Acquire(); tex != 0 {
			x, y := r.session.Cursor.Load()
			fence := r.backend.CompositeUI(tex, CursorTransform(mgl32.Vec2{x, y}, r.cfg.UIAspect))
			r.receiver.SetFence(fence)
			r.uiComposited = true
		}
	}

	if n := r.receiver.Reclaim(); n > 0 {
		r.log.Debug("Reclaimed UI textures", zap.Int("count", n))
	}
	r.session.Metrics.SetTrashDepth(r.receiver.Pending())

	present := PresentParams{
		Immersive: program != nil && program.Immersive,
		UVScale:   r.resolutionScale,
		Gallery:   GalleryTransforms(float32(fullW) / float32(fullH)),
		ShowUI:    r.uiVisible && r.uiComposited,
		UIModel:   UIModel(r.cfg.UIAspect),
	}
	for i, eye := range eyes {
		present.Eye = eye
		r.backend.Present(i, present)
	}
	r.backend.EndFrame()
	r.sampleFPS()
}

func (r *Renderer) sampleFPS() {
	r.frames++
	now := r.now()
	elapsed := now.Sub(r.fpsSince)
	if elapsed < time.Second {
		return
	}
	r.lastFPS = float32(float64(r.frames) / elapsed.Seconds())
	r.frames = 0
	r.fpsSince = now
	r.session.Metrics.SetFPS(float64(r.lastFPS))
	r.notify.FPS(r.lastFPS)
}

// Shutdown drains pending tasks and gives every UI texture back to the UI
// thread. It waits for the GPU, so call it once, after the UI thread has
// stopped publishing.
func (r *Renderer) Shutdown() {
	r.session.Tasks.RunAll(func(name string, err error) {
		r.log.Warn("Render task failed during shutdown", zap.String("task", name), zap.Error(err))
	})
	r.receiver.Close()
	r.backend.Finish()
	n := r.receiver.Reclaim()
	r.log.Debug("Handed UI textures back for release", zap.Int("count", n))
}

// ResolutionScaleValue is the current resolution scale. Render thread only.
func (r *Renderer) ResolutionScaleValue() float32 { return r.resolutionScale }

// PositionScaleValue is the current position scale. Render thread only.
func (r *Renderer) PositionScaleValue() float32 { return r.positionScale }

// Position is the viewer offset. Render thread only.
func (r *Renderer) Position() mgl32.Vec3 { return r.position }

// UIVisible reports whether the UI is shown. Render thread only.
func (r *Renderer) UIVisible() bool { return r.uiVisible }

// Actions is the current uniform update list. Render thread only.
func (r *Renderer) Actions() []uniforms.Action { return r.actions }

// Document is the active shader document. Render thread only.
func (r *Renderer) Document() document.Shader { return r.doc }
