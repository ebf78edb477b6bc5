package gldevice

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadertoyvr/graphics"
	"github.com/richinsley/goshadertoyvr/handoff"
	"github.com/richinsley/goshadertoyvr/renderer"
	"github.com/richinsley/goshadertoyvr/shader"
	"github.com/richinsley/goshadertoyvr/uniforms"
	"go.uber.org/zap"
)

var quadVertices = []float32{
	-1.0, 1.0, -1.0, -1.0, 1.0, -1.0,
	-1.0, 1.0, 1.0, -1.0, 1.0, 1.0,
}

const texturedVertexShader = `#version 410 core
layout(location = 0) in vec2 in_vert;
uniform mat4 mvp;
uniform vec2 uvScale;
out vec2 uv;
void main() {
    uv = (in_vert * 0.5 + 0.5) * uvScale;
    gl_Position = mvp * vec4(in_vert, 0.0, 1.0);
}
`

const texturedFragmentShader = `#version 410 core
uniform sampler2D tex;
in vec2 uv;
out vec4 FragColor;
void main() {
    FragColor = texture(tex, uv);
}
`

type BackendConfig struct {
	UIWidth  int
	UIHeight int
	// Cursor is the pointer sprite, already prepared for upload.
	Cursor *image.RGBA
}

// Backend draws frames for the renderer with OpenGL 4.1.
type Backend struct {
	ctx graphics.Context
	log *zap.Logger

	quadVAO uint32
	quadVBO uint32

	textured   uint32
	mvpLoc     int32
	uvScaleLoc int32
	texLoc     int32
	cursor     uint32
	scenes     []*RenderTarget
	ui         *RenderTarget
	uiW, uiH   int
	sink       Sink
	uploader   Uploader
}

// NewBackend creates the backend's GPU objects. ctx must be current.
func NewBackend(ctx graphics.Context, log *zap.Logger, cfg BackendConfig) (*Backend, error) {
	b := &Backend{ctx: ctx, log: log, uiW: cfg.UIWidth, uiH: cfg.UIHeight}

	gl.GenVertexArrays(1, &b.quadVAO)
	gl.BindVertexArray(b.quadVAO)
	gl.GenBuffers(1, &b.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 2*4, 0)
	gl.BindVertexArray(0)

	var err error
	b.textured, err = newProgram(texturedVertexShader, texturedFragmentShader)
	if err != nil {
		b.Destroy()
		return nil, fmt.Errorf("failed to create textured program: %w", err)
	}
	b.mvpLoc = gl.GetUniformLocation(b.textured, gl.Str("mvp\x00"))
	b.uvScaleLoc = gl.GetUniformLocation(b.textured, gl.Str("uvScale\x00"))
	b.texLoc = gl.GetUniformLocation(b.textured, gl.Str("tex\x00"))

	b.ui, err = NewRenderTarget(cfg.UIWidth, cfg.UIHeight)
	if err != nil {
		b.Destroy()
		return nil, fmt.Errorf("failed to create ui target: %w", err)
	}

	if cfg.Cursor != nil {
		b.uploader = Uploader{Sampler: Sampler{Filter: "linear", Wrap: "clamp"}}
		b.cursor, err = b.uploader.UploadPlane(cfg.Cursor)
		if err != nil {
			b.Destroy()
			return nil, fmt.Errorf("failed to upload cursor: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) BeginFrame() {
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.SCISSOR_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	w, h := b.ctx.GetFramebufferSize()
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// sceneTarget returns the eye's offscreen target, recreating it when the
// display's recommended size changes.
func (b *Backend) sceneTarget(eye int, w, h int) (*RenderTarget, error) {
	for len(b.scenes) <= eye {
		b.scenes = append(b.scenes, nil)
	}
	rt := b.scenes[eye]
	if rt != nil {
		if cw, ch := rt.Size(); cw == w && ch == h {
			return rt, nil
		}
		rt.Destroy()
		b.scenes[eye] = nil
	}
	rt, err := NewRenderTarget(w, h)
	if err != nil {
		return nil, err
	}
	b.log.Debug("Created scene target", zap.Int("eye", eye), zap.Int("width", w), zap.Int("height", h))
	b.scenes[eye] = rt
	return rt, nil
}

func (b *Backend) RenderScene(eye int, p renderer.SceneParams) {
	rt, err := b.sceneTarget(eye, p.Target[0], p.Target[1])
	if err != nil {
		b.log.Error("Cannot render scene", zap.Int("eye", eye), zap.Error(err))
		return
	}
	rt.Bind(p.Target[0], p.Target[1])
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.Viewport(0, 0, int32(p.Size[0]), int32(p.Size[1]))

	gl.Disable(gl.BLEND)
	gl.UseProgram(p.Program.ID)
	uniforms.Apply(p.Actions, b.sink, p.Values)
	if loc, ok := p.Program.Location(shader.UniformRay); ok {
		gl.UniformMatrix4fv(loc, 1, false, &p.Ray[0])
	}
	b.drawQuad()
	gl.Enable(gl.BLEND)
	gl.ActiveTexture(gl.TEXTURE0)
}

func (b *Backend) CompositeUI(texture uint32, cursor mgl32.Mat4) handoff.Fence {
	b.ui.Bind(b.uiW, b.uiH)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	ident := mgl32.Ident4()
	gl.Disable(gl.BLEND)
	b.drawTextured(texture, ident, 1)
	gl.Enable(gl.BLEND)
	if b.cursor != 0 {
		b.drawTextured(b.cursor, cursor, 1)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return NewFence()
}

func (b *Backend) Present(eye int, p renderer.PresentParams) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	vp := p.Eye.Viewport
	gl.Viewport(vp[0], vp[1], vp[2], vp[3])

	var scene uint32
	if eye < len(b.scenes) && b.scenes[eye] != nil {
		scene = b.scenes[eye].Texture()
	}
	viewProj := p.Eye.Projection.Mul4(p.Eye.View)
	if scene != 0 {
		if p.Immersive {
			b.drawTextured(scene, mgl32.Ident4(), p.UVScale)
		} else {
			for _, model := range p.Gallery {
				b.drawTextured(scene, viewProj.Mul4(model), p.UVScale)
			}
		}
	}
	if p.ShowUI {
		b.drawTextured(b.ui.Texture(), viewProj.Mul4(p.UIModel), 1)
	}
}

func (b *Backend) EndFrame() {
	b.ctx.EndFrame()
}

func (b *Backend) Finish() {
	gl.Finish()
}

func (b *Backend) drawTextured(tex uint32, mvp mgl32.Mat4, uvScale float32) {
	gl.UseProgram(b.textured)
	gl.UniformMatrix4fv(b.mvpLoc, 1, false, &mvp[0])
	gl.Uniform2f(b.uvScaleLoc, uvScale, uvScale)
	gl.Uniform1i(b.texLoc, 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	b.drawQuad()
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (b *Backend) drawQuad() {
	gl.BindVertexArray(b.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

// Destroy releases the backend's GPU objects. The context must be current.
func (b *Backend) Destroy() {
	for _, rt := range b.scenes {
		if rt != nil {
			rt.Destroy()
		}
	}
	b.scenes = nil
	if b.ui != nil {
		b.ui.Destroy()
		b.ui = nil
	}
	if b.cursor != 0 {
		b.uploader.DeleteTexture(b.cursor)
		b.cursor = 0
	}
	if b.textured != 0 {
		gl.DeleteProgram(b.textured)
		b.textured = 0
	}
	gl.DeleteBuffers(1, &b.quadVBO)
	gl.DeleteVertexArrays(1, &b.quadVAO)
}
