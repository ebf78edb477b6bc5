package inputs

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/richinsley/goshadertoyvr/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	next    uint32
	planes  int
	cubes   int
	deleted []uint32
	last    *image.RGBA
}

func (u *fakeUploader) UploadPlane(img *image.RGBA) (uint32, error) {
	u.planes++
	u.next++
	u.last = img
	return u.next, nil
}

func (u *fakeUploader) UploadCubemap(faces [6]*image.RGBA) (uint32, error) {
	u.cubes++
	u.next++
	return u.next, nil
}

func (u *fakeUploader) DeleteTexture(id uint32) { u.deleted = append(u.deleted, id) }

// twoRowPNG encodes a w x 2 image with a red top row and a blue bottom row.
func twoRowPNG(t *testing.T, w int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, 2))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
		img.Set(x, 1, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testBundle(t *testing.T) fstest.MapFS {
	data := twoRowPNG(t, 4)
	bundle := fstest.MapFS{
		"textures/tex00.png": {Data: data},
		"textures/tex01.png": {Data: data},
	}
	for i := 0; i < 6; i++ {
		bundle[fmt.Sprintf("cubemaps/cube00_%d.png", i)] = &fstest.MapFile{Data: data}
	}
	return bundle
}

func newTestResolver(t *testing.T) (*Resolver, *fakeUploader) {
	up := &fakeUploader{}
	r := NewResolver(&Loader{Bundle: testBundle(t)}, up, zap.NewNop(), nil)
	r.Aliases.RegisterCatalog(Catalog{
		Textures: []string{"textures/tex00.png", "textures/tex01.png"},
		Cubemaps: []string{"cubemaps/cube00_0.png"},
	})
	return r, up
}

func TestAliasEquivalence(t *testing.T) {
	r, up := newTestResolver(t)

	padded, err := r.Resolve("preset://tex/00", TargetPlane)
	require.NoError(t, err)
	direct, err := r.Resolve("qrc:/textures/tex00.png", TargetPlane)
	require.NoError(t, err)
	short, err := r.Resolve("preset://tex/0", TargetPlane)
	require.NoError(t, err)
	legacy, err := r.Resolve("/presets/tex00.png", TargetPlane)
	require.NoError(t, err)

	assert.Equal(t, padded.ID, direct.ID)
	assert.Equal(t, padded.ID, short.ID)
	assert.Equal(t, padded.ID, legacy.ID)
	assert.Equal(t, 1, up.planes)
	assert.Equal(t, []string{"qrc:/textures/tex00.png"}, r.Cached())
}

func TestSetChannelUploadsOnce(t *testing.T) {
	r, up := newTestResolver(t)
	ch := NewChannels(r, zap.NewNop())
	require.True(t, ch.Slots()[0].IsEmpty())

	changed, err := ch.Set(0, document.KindTexture, "qrc:/textures/tex00.png")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = ch.Set(0, document.KindTexture, "qrc:/textures/tex00.png")
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, 1, up.planes)
	slot := ch.Slots()[0]
	assert.Equal(t, uint32(1), slot.ID)
	assert.Equal(t, 4, slot.Width)
	assert.Equal(t, 2, slot.Height)
	assert.Equal(t, [3]float32{4, 2, 1}, slot.Resolution())
}

func TestSetChannelLiteralCompare(t *testing.T) {
	r, up := newTestResolver(t)
	ch := NewChannels(r, zap.NewNop())

	_, err := ch.Set(1, document.KindTexture, "preset://tex/01")
	require.NoError(t, err)
	changed, err := ch.Set(1, document.KindTexture, "qrc:/textures/tex01.png")
	require.NoError(t, err)

	// A different spelling re-binds the slot; the cache prevents a second upload.
	assert.True(t, changed)
	assert.Equal(t, "qrc:/textures/tex01.png", ch.Slots()[1].Source)
	assert.Equal(t, 1, up.planes)
}

func TestSetChannelClearAndUnsupported(t *testing.T) {
	r, _ := newTestResolver(t)
	ch := NewChannels(r, zap.NewNop())

	_, err := ch.Set(2, document.KindCubemap, "preset://cube/00")
	require.NoError(t, err)
	assert.Equal(t, TargetCubemap, ch.Targets()[2])

	changed, err := ch.Set(2, document.KindTexture, "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ch.Slots()[2].IsEmpty())
	assert.Equal(t, TargetPlane, ch.Targets()[2])

	for _, kind := range []document.Kind{document.KindVideo, document.KindAudio} {
		_, err := ch.Set(3, kind, "/presets/vid00.ogv"+string(kind))
		require.NoError(t, err)
		assert.True(t, ch.Slots()[3].IsEmpty())
	}

	_, err = ch.Set(4, document.KindTexture, "x")
	assert.Error(t, err)
}

func TestSetChannelLoadFailure(t *testing.T) {
	r, up := newTestResolver(t)
	ch := NewChannels(r, zap.NewNop())

	_, err := ch.Set(0, document.KindTexture, "qrc:/textures/missing.png")
	var loadErr *ResourceLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "qrc:/textures/missing.png", loadErr.ID)
	assert.True(t, ch.Slots()[0].IsEmpty())
	assert.Zero(t, up.planes)

	// The failed identifier is not remembered, so asking again retries.
	_, err = ch.Set(0, document.KindTexture, "qrc:/textures/missing.png")
	assert.Error(t, err)
}

func TestResolveTargetMismatch(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve("preset://cube/0", TargetCubemap)
	require.NoError(t, err)

	_, err = r.Resolve("qrc:/cubemaps/cube00_0.png", TargetPlane)
	assert.ErrorIs(t, err, ErrTargetMismatch)
}

func TestResolveCubemap(t *testing.T) {
	r, up := newTestResolver(t)
	tex, err := r.Resolve("/presets/cube00_0.png", TargetCubemap)
	require.NoError(t, err)
	assert.Equal(t, TargetCubemap, tex.Target)
	assert.Equal(t, 1, up.cubes)
	assert.Equal(t, "samplerCube", tex.Target.SamplerType())
}

func TestAliasCycleAndDepth(t *testing.T) {
	a := NewAliasTable()
	a.Add("a", "b")
	a.Add("b", "c")
	a.Add("c", "a")

	_, err := a.Canonical("a")
	var aliasErr *AliasResolutionError
	require.ErrorAs(t, err, &aliasErr)
	assert.ErrorIs(t, err, ErrAliasCycle)
	assert.Equal(t, "a", aliasErr.ID)

	deep := NewAliasTable()
	for i := 0; i < MaxAliasHops+1; i++ {
		deep.Add(fmt.Sprintf("id%d", i), fmt.Sprintf("id%d", i+1))
	}
	got, err := deep.Canonical(fmt.Sprintf("id%d", 1))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("id%d", MaxAliasHops+1), got)

	_, err = deep.Canonical("id0")
	assert.ErrorIs(t, err, ErrAliasDepth)

	id, err := deep.Canonical("unaliased")
	require.NoError(t, err)
	assert.Equal(t, "unaliased", id)

	r, _ := newTestResolver(t)
	r.Aliases.Add("x", "y")
	r.Aliases.Add("y", "x")
	_, err = r.Resolve("x", TargetPlane)
	assert.True(t, errors.Is(err, ErrAliasCycle))
}

func TestLoadImageFlipsRows(t *testing.T) {
	l := &Loader{Bundle: testBundle(t)}
	img, err := l.LoadImage("qrc:/textures/tex00.png", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(0, 1))
}

func TestLoadCubemapKeepsRowOrder(t *testing.T) {
	l := &Loader{Bundle: testBundle(t)}
	faces, err := l.LoadCubemap("qrc:/cubemaps/cube00_0.png", LoadOptions{})
	require.NoError(t, err)
	for i, face := range faces {
		assert.Equal(t, color.RGBA{R: 255, A: 255}, face.RGBAAt(0, 0), "face %d", i)
		assert.Equal(t, color.RGBA{B: 255, A: 255}, face.RGBAAt(0, 1), "face %d", i)
	}
}

func TestPadCentered(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 3))
	src.SetRGBA(0, 0, color.RGBA{G: 255, A: 255})

	out := PadCentered(src)
	assert.Equal(t, image.Rect(0, 0, 4, 6), out.Rect)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, out.RGBAAt(2, 3))
	assert.Equal(t, color.RGBA{}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{}, out.RGBAAt(3, 0))

	l := &Loader{Bundle: testBundle(t)}
	sprite, err := l.LoadImage("qrc:/textures/tex00.png", LoadOptions{PadCentered: true})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), sprite.Rect)
	// In GPU row order the image fills the lower right quadrant.
	assert.Equal(t, color.RGBA{R: 255, A: 255}, sprite.RGBAAt(4, 1))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, sprite.RGBAAt(4, 0))
	assert.Equal(t, color.RGBA{}, sprite.RGBAAt(0, 3))
}

func TestLoadFromFilesystem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.png")
	require.NoError(t, os.WriteFile(path, twoRowPNG(t, 3), 0644))

	r, up := newTestResolver(t)
	tex, err := r.Resolve("file://"+path, TargetPlane)
	require.NoError(t, err)
	assert.Equal(t, 3, tex.Width)

	tex2, err := r.Resolve(path, TargetPlane)
	require.NoError(t, err)
	assert.Equal(t, 3, tex2.Width)
	assert.Equal(t, 2, up.planes, "file:// and bare paths are distinct cache keys")
}

func TestCubemapFace(t *testing.T) {
	got, err := CubemapFace("qrc:/cubemaps/cube02_0.jpg", 5)
	require.NoError(t, err)
	assert.Equal(t, "qrc:/cubemaps/cube02_5.jpg", got)

	_, err = CubemapFace("qrc:/cubemaps/sky.jpg", 1)
	assert.Error(t, err)
}

func TestReleaseDeletesCache(t *testing.T) {
	r, up := newTestResolver(t)
	_, err := r.Resolve("preset://tex/00", TargetPlane)
	require.NoError(t, err)
	_, err = r.Resolve("preset://tex/01", TargetPlane)
	require.NoError(t, err)

	r.Release()
	assert.ElementsMatch(t, []uint32{1, 2}, up.deleted)
	assert.Empty(t, r.Cached())
}
