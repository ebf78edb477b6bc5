package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinResolutionScale = 0.1
	MaxResolutionScale = 1.0

	// GalleryCopies is the number of shader panels around the viewer when
	// the shader is not immersive.
	GalleryCopies = 4

	galleryDistance = 3.5
	galleryScale    = 3.0
	uiDistance      = 1.0
	cursorScale     = 0.1
)

// ClampScale limits a resolution scale to [0.1, 1].
func ClampScale(s float32) float32 {
	return mgl32.Clamp(s, MinResolutionScale, MaxResolutionScale)
}

// ScaledSize is the offscreen viewport for a resolution scale, never
// smaller than one pixel.
func ScaledSize(w, h int, scale float32) (int, int) {
	sw := int(float32(w) * scale)
	sh := int(float32(h) * scale)
	return max(sw, 1), max(sh, 1)
}

// GalleryTransforms places the shader output as panels on the four sides
// of the viewer: panel i is turned i quarter turns about the vertical axis,
// pushed 3.5 units away and scaled to the scene's aspect.
func GalleryTransforms(aspect float32) [GalleryCopies]mgl32.Mat4 {
	var out [GalleryCopies]mgl32.Mat4
	trans := mgl32.Translate3D(0, 0, -galleryDistance)
	scale := mgl32.Scale3D(galleryScale, galleryScale/aspect, galleryScale)
	for i := range out {
		rot := mgl32.HomogRotate3DY(float32(i) * math.Pi / 2)
		out[i] = rot.Mul4(trans).Mul4(scale)
	}
	return out
}

// UIModel places the UI surface one unit in front of the viewer.
func UIModel(uiAspect float32) mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, -uiDistance).Mul4(mgl32.Scale3D(0.5, 0.5/uiAspect, 1))
}

// CursorTransform places the pointer sprite on the UI surface. pos is in
// the surface's normalized device coordinates; the sprite keeps square
// pixels on a surface of the given aspect.
func CursorTransform(pos mgl32.Vec2, uiAspect float32) mgl32.Mat4 {
	return mgl32.Translate3D(pos.X(), pos.Y(), 0).Mul4(mgl32.Scale3D(cursorScale/uiAspect, cursorScale, 1))
}
