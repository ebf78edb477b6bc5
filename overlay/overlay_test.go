package overlay

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/richinsley/goshadertoyvr/handoff"
	"github.com/richinsley/goshadertoyvr/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTextures struct {
	mu        sync.Mutex
	next      uint32
	recycled  []uint32
	destroyed bool
	fail      bool
	uploaded  *image.RGBA
}

func (f *fakeTextures) Upload(img *image.RGBA) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("upload failed")
	}
	f.next++
	f.uploaded = img
	return f.next, nil
}

func (f *fakeTextures) Recycle(ids ...uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recycled = append(f.recycled, ids...)
}

func (f *fakeTextures) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
}

type fakeCurrent struct{ made, detached atomic.Int32 }

func (c *fakeCurrent) MakeCurrent()   { c.made.Add(1) }
func (c *fakeCurrent) DetachCurrent() { c.detached.Add(1) }

func newTestProducer(tex *fakeTextures, cur Current, m *metrics.Metrics, visible func() bool) (*Producer, *handoff.Cell, *handoff.ReleaseQueue) {
	cell := &handoff.Cell{}
	release := &handoff.ReleaseQueue{}
	p := NewProducer(Config{Width: 320, Height: 180, Interval: time.Millisecond, ReleaseInterval: time.Millisecond},
		zap.NewNop(), m, NewHUD("test"), tex, cur, cell, release, visible)
	return p, cell, release
}

func TestProduceRecyclesUnconsumedFrame(t *testing.T) {
	tex := &fakeTextures{}
	m := metrics.New()
	p, cell, _ := newTestProducer(tex, nil, m, func() bool { return true })

	p.produce()
	p.produce()
	assert.Equal(t, []uint32{1}, tex.recycled)
	assert.Equal(t, uint32(2), cell.Consume())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UIFramesProduced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UIFramesDropped))
}

func TestProduceUploadsBottomRowFirst(t *testing.T) {
	tex := &fakeTextures{}
	p, _, _ := newTestProducer(tex, nil, nil, func() bool { return true })
	p.produce()

	require.NotNil(t, tex.uploaded)
	h := p.frame.Rect.Dy()
	assert.Equal(t, p.frame.Rect, tex.uploaded.Rect)
	for y := 0; y < h; y++ {
		assert.Equal(t, p.frame.RGBAAt(margin, y), tex.uploaded.RGBAAt(margin, h-1-y), "row %d", y)
	}
	// The panel sits at the top of the HUD, so it lands at the end of the
	// uploaded rows.
	assert.Zero(t, tex.uploaded.RGBAAt(0, h-1).A)
	assert.Equal(t, panelColor.A, tex.uploaded.RGBAAt(margin, h-1-margin).A)
	assert.Zero(t, tex.uploaded.RGBAAt(margin, 0).A)
}

func TestProduceUploadFailurePublishesNothing(t *testing.T) {
	tex := &fakeTextures{fail: true}
	p, cell, _ := newTestProducer(tex, nil, nil, func() bool { return true })
	p.produce()
	assert.Zero(t, cell.Consume())
}

func TestReclaim(t *testing.T) {
	tex := &fakeTextures{}
	m := metrics.New()
	p, _, release := newTestProducer(tex, nil, m, func() bool { return true })

	assert.Zero(t, p.reclaim())
	release.Push(4, 5)
	assert.Equal(t, 2, p.reclaim())
	assert.Equal(t, []uint32{4, 5}, tex.recycled)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TexturesReleased))
}

func TestRunLifecycle(t *testing.T) {
	tex := &fakeTextures{}
	cur := &fakeCurrent{}
	var visible atomic.Bool
	visible.Store(true)
	p, cell, release := newTestProducer(tex, cur, nil, visible.Load)

	ctx, cancel := context.WithCancel(context.Background())
	drained := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, drained) }()

	require.Eventually(t, func() bool {
		tex.mu.Lock()
		defer tex.mu.Unlock()
		return tex.next >= 3
	}, time.Second, time.Millisecond)

	// The render thread hands back whatever it held.
	cancel()
	if h := cell.Consume(); h != 0 {
		release.Push(h)
	}
	close(drained)
	require.NoError(t, <-done)

	tex.mu.Lock()
	defer tex.mu.Unlock()
	assert.True(t, tex.destroyed)
	assert.Equal(t, int32(1), cur.made.Load())
	assert.Equal(t, int32(1), cur.detached.Load())
	assert.Zero(t, release.Len())
}

func TestRunHiddenProducesNothing(t *testing.T) {
	tex := &fakeTextures{}
	p, _, _ := newTestProducer(tex, nil, nil, func() bool { return false })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	drained := make(chan struct{})
	close(drained)
	require.NoError(t, p.Run(ctx, drained))
	assert.Zero(t, tex.next)
}

func TestHUDLines(t *testing.T) {
	h := NewHUD("Seascape")
	h.FPS(59.94)
	h.ResolutionScale(0.5)
	h.PositionScale(2)

	assert.Equal(t, []string{"Seascape", "FPS: 59.9", "Resolution: 50%", "Position scale: 2.00"}, h.Lines())

	h.CompileSucceeded()
	assert.Equal(t, "Compiled", h.Lines()[4])

	h.CompileFailed("0:1(1): error: one\n0:2(1): error: two\n")
	lines := h.Lines()
	assert.Equal(t, []string{"Compile failed:", "0:1(1): error: one", "0:2(1): error: two"}, lines[4:])

	h.CompileFailed(strings.Repeat("e\n", maxErrorLines+10))
	lines = h.Lines()
	assert.Len(t, lines, 4+1+maxErrorLines+1)
	assert.Equal(t, "...", lines[len(lines)-1])
}

func TestHUDDraw(t *testing.T) {
	h := NewHUD("title")
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	h.Draw(img)

	// Corners stay transparent, the panel is filled.
	assert.Zero(t, img.RGBAAt(0, 0).A)
	assert.Equal(t, panelColor.A, img.RGBAAt(margin, margin).A)

	var text int
	for y := margin; y < margin+lineHeight; y++ {
		for x := margin; x < margin+7*5; x++ {
			if img.RGBAAt(x, y) == textColor {
				text++
			}
		}
	}
	assert.NotZero(t, text)
}
