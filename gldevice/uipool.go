package gldevice

import (
	"fmt"
	"image"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// maxFreeUITextures bounds the textures kept for reuse; any more returned
// by the render thread are deleted.
const maxFreeUITextures = 3

// UITextures allocates and recycles UI frame textures on the UI thread's
// context. All methods must be called on that thread.
type UITextures struct {
	width, height int
	free          []uint32
	live          map[uint32]struct{}
}

func NewUITextures(width, height int) *UITextures {
	return &UITextures{width: width, height: height, live: make(map[uint32]struct{})}
}

func (p *UITextures) take() uint32 {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		return id
	}
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(p.width), int32(p.height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	p.live[id] = struct{}{}
	return id
}

// Upload copies img into a texture and waits for the copy to complete, so
// the handle is safe to publish to another context.
func (p *UITextures) Upload(img *image.RGBA) (uint32, error) {
	if size := img.Rect.Size(); size.X != p.width || size.Y != p.height {
		return 0, fmt.Errorf("ui frame is %dx%d, want %dx%d", size.X, size.Y, p.width, p.height)
	}
	id := p.take()
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(p.width), int32(p.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	fence := NewFence()
	defer fence.Delete()
	if !fence.Wait(time.Second) {
		p.Recycle(id)
		return 0, fmt.Errorf("ui texture upload did not complete")
	}
	return id, nil
}

// Recycle takes back textures the render thread no longer reads.
func (p *UITextures) Recycle(ids ...uint32) {
	for _, id := range ids {
		if _, ok := p.live[id]; !ok {
			continue
		}
		if len(p.free) < maxFreeUITextures {
			p.free = append(p.free, id)
			continue
		}
		delete(p.live, id)
		gl.DeleteTextures(1, &id)
	}
}

// Destroy deletes every texture the pool created. Textures still held by
// the render thread must have been returned first.
func (p *UITextures) Destroy() {
	for id := range p.live {
		gl.DeleteTextures(1, &id)
	}
	p.live = make(map[uint32]struct{})
	p.free = nil
}
