package gldevice

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshadertoyvr/inputs"
)

// Sampler is how channel textures are filtered and wrapped.
type Sampler struct {
	Filter string // "mipmap", "linear" or "nearest"
	Wrap   string // "repeat" or "clamp"
}

// DefaultSampler matches what bundled textures expect.
var DefaultSampler = Sampler{Filter: "mipmap", Wrap: "repeat"}

func wrapMode(wrap string) int32 {
	switch wrap {
	case "clamp":
		return gl.CLAMP_TO_EDGE
	default:
		return gl.REPEAT
	}
}

func filterMode(filter string) (minFilter, magFilter int32) {
	switch filter {
	case "mipmap":
		return gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR
	case "nearest":
		return gl.NEAREST, gl.NEAREST
	default:
		return gl.LINEAR, gl.LINEAR
	}
}

// Uploader creates channel textures with the current context. Images
// arrive flipped for GL's bottom-up row order.
type Uploader struct {
	Sampler Sampler
}

func (u Uploader) UploadPlane(img *image.RGBA) (uint32, error) {
	if img == nil {
		return 0, fmt.Errorf("no image to upload")
	}
	size := img.Rect.Size()

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(size.X), int32(size.Y), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	u.applySampler(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id, nil
}

func (u Uploader) UploadCubemap(faces [6]*image.RGBA) (uint32, error) {
	for i, f := range faces {
		if f == nil {
			return 0, fmt.Errorf("cubemap face %d is missing", i)
		}
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	for i, f := range faces {
		size := f.Rect.Size()
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(i), 0, gl.RGBA8,
			int32(size.X), int32(size.Y), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.Pix))
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	u.applySampler(gl.TEXTURE_CUBE_MAP)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
	return id, nil
}

func (u Uploader) DeleteTexture(id uint32) {
	gl.DeleteTextures(1, &id)
}

func (u Uploader) applySampler(target uint32) {
	s := u.Sampler
	if s == (Sampler{}) {
		s = DefaultSampler
	}
	wrap := wrapMode(s.Wrap)
	if target == gl.TEXTURE_CUBE_MAP {
		wrap = gl.CLAMP_TO_EDGE
	}
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, wrap)
	minFilter, magFilter := filterMode(s.Filter)
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, magFilter)
	if s.Filter == "mipmap" {
		gl.GenerateMipmap(target)
	}
}

func glTarget(t inputs.Target) uint32 {
	if t == inputs.TargetCubemap {
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_2D
}

// Sink sends uniform actions to the program in use.
type Sink struct{}

func (Sink) Uniform1f(loc int32, v float32)    { gl.Uniform1f(loc, v) }
func (Sink) Uniform3f(loc int32, v [3]float32) { gl.Uniform3f(loc, v[0], v[1], v[2]) }
func (Sink) Uniform1i(loc int32, v int32)      { gl.Uniform1i(loc, v) }

func (Sink) BindTexture(unit int, target inputs.Target, tex uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(glTarget(target), tex)
}
