package inputs

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/mitchellh/go-homedir"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// BundlePrefix marks identifiers that name a file in the bundled assets.
const BundlePrefix = "qrc:/"

// LoadOptions alter how an image is prepared for upload.
type LoadOptions struct {
	// PadCentered places the image in a zeroed canvas of twice its size with
	// its top-left corner at the canvas center. Used for the pointer sprite,
	// whose hotspot is its top-left corner.
	PadCentered bool
}

// Loader reads images from the bundle or the filesystem and converts them to
// RGBA in GPU row order.
type Loader struct {
	Bundle fs.FS
}

func (l *Loader) open(id string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(id, BundlePrefix):
		if l.Bundle == nil {
			return nil, fmt.Errorf("no asset bundle for %s", id)
		}
		return l.Bundle.Open(strings.TrimPrefix(id, BundlePrefix))
	case strings.HasPrefix(id, "file://"):
		u, err := url.Parse(id)
		if err != nil {
			return nil, err
		}
		return os.Open(u.Path)
	default:
		p, err := homedir.Expand(id)
		if err != nil {
			return nil, err
		}
		return os.Open(p)
	}
}

// Decode reads the image named by id and returns it as top-down RGBA.
func (l *Loader) Decode(id string) (*image.RGBA, error) {
	r, err := l.open(id)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", id, err)
	}
	return toRGBA(img), nil
}

// LoadImage returns the image named by id, bottom row first.
func (l *Loader) LoadImage(id string, opts LoadOptions) (*image.RGBA, error) {
	rgba, err := l.Decode(id)
	if err != nil {
		return nil, err
	}
	return transform.FlipV(pad(rgba, opts)), nil
}

// LoadCubemap returns the six faces of the cubemap whose first face is id.
// Faces are numbered files: "name_0.png" through "name_5.png". Cube map
// faces have a top-left origin, so their rows stay in file order.
func (l *Loader) LoadCubemap(id string, opts LoadOptions) ([6]*image.RGBA, error) {
	var faces [6]*image.RGBA
	for i := range faces {
		faceID, err := CubemapFace(id, i)
		if err != nil {
			return faces, err
		}
		rgba, err := l.Decode(faceID)
		if err != nil {
			return faces, fmt.Errorf("cube map face %d: %w", i, err)
		}
		faces[i] = pad(rgba, opts)
	}
	w, h := faces[0].Rect.Dx(), faces[0].Rect.Dy()
	for i, f := range faces {
		if f.Rect.Dx() != w || f.Rect.Dy() != h {
			return faces, fmt.Errorf("cube map face %d is %dx%d, want %dx%d", i, f.Rect.Dx(), f.Rect.Dy(), w, h)
		}
	}
	return faces, nil
}

// CubemapFace derives the identifier of face i from the first face's
// identifier.
func CubemapFace(id string, i int) (string, error) {
	ext := path.Ext(id)
	stem := strings.TrimSuffix(id, ext)
	if !strings.HasSuffix(stem, "_0") {
		return "", fmt.Errorf("cube map %s does not name face 0 (want name_0%s)", id, ext)
	}
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(stem, "_0"), i, ext), nil
}

func pad(rgba *image.RGBA, opts LoadOptions) *image.RGBA {
	if opts.PadCentered {
		return PadCentered(rgba)
	}
	return rgba
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// PadCentered returns a transparent canvas of twice the size of img with img
// drawn so its top-left corner sits at the canvas center.
func PadCentered(img *image.RGBA) *image.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	canvas := image.NewRGBA(image.Rect(0, 0, w*2, h*2))
	draw.Draw(canvas, image.Rect(w, h, w*2, h*2), img, img.Rect.Min, draw.Src)
	return canvas
}
