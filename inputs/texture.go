package inputs

import "image"

// Target is the kind of texture a channel binds: a plane or a cubemap.
type Target int

const (
	TargetPlane Target = iota
	TargetCubemap
)

// SamplerType returns the GLSL sampler type (e.g., "sampler2D", "samplerCube").
func (t Target) SamplerType() string {
	if t == TargetCubemap {
		return "samplerCube"
	}
	return "sampler2D"
}

func (t Target) String() string {
	if t == TargetCubemap {
		return "cubemap"
	}
	return "plane"
}

// Texture is a GPU texture and the size of the image it was created from.
type Texture struct {
	ID     uint32
	Target Target
	Width  int
	Height int
}

// Resolution returns the size as the vec3 shaders see in iChannelResolution.
func (t Texture) Resolution() [3]float32 {
	return [3]float32{float32(t.Width), float32(t.Height), 1.0}
}

// Uploader creates and destroys GPU textures. Images are already in GPU row
// order (bottom row first). Implementations run on the render thread.
type Uploader interface {
	UploadPlane(img *image.RGBA) (uint32, error)
	UploadCubemap(faces [6]*image.RGBA) (uint32, error)
	DeleteTexture(id uint32)
}
