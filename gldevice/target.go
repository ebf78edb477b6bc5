package gldevice

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// RenderTarget is an offscreen framebuffer with a sampled color texture and
// a depth attachment.
type RenderTarget struct {
	fbo               uint32
	texture           uint32
	depthRenderbuffer uint32
	width             int
	height            int
}

func NewRenderTarget(width, height int) (*RenderTarget, error) {
	rt := &RenderTarget{width: width, height: height}

	gl.GenFramebuffers(1, &rt.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.GenTextures(1, &rt.texture)
	gl.BindTexture(gl.TEXTURE_2D, rt.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, rt.texture, 0)
	gl.GenRenderbuffers(1, &rt.depthRenderbuffer)
	gl.BindRenderbuffer(gl.RENDERBUFFER, rt.depthRenderbuffer)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(width), int32(height))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, rt.depthRenderbuffer)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		rt.Destroy()
		return nil, fmt.Errorf("offscreen framebuffer %dx%d is not complete (status 0x%x)", width, height, status)
	}
	return rt, nil
}

// Bind makes the target the draw framebuffer with a viewport of w x h in
// its lower left corner.
func (rt *RenderTarget) Bind(w, h int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.Viewport(0, 0, int32(w), int32(h))
}

func (rt *RenderTarget) Texture() uint32 { return rt.texture }

func (rt *RenderTarget) Size() (int, int) { return rt.width, rt.height }

func (rt *RenderTarget) Destroy() {
	gl.DeleteFramebuffers(1, &rt.fbo)
	gl.DeleteTextures(1, &rt.texture)
	gl.DeleteRenderbuffers(1, &rt.depthRenderbuffer)
}
