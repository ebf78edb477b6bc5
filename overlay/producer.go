package overlay

import (
	"context"
	"image"
	"runtime"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"github.com/richinsley/goshadertoyvr/handoff"
	"github.com/richinsley/goshadertoyvr/metrics"
	"go.uber.org/zap"
)

// Textures creates and recycles UI frame textures. It is only used from
// the producer's thread.
type Textures interface {
	Upload(img *image.RGBA) (uint32, error)
	Recycle(ids ...uint32)
	Destroy()
}

// Current binds a graphics context to the calling thread.
type Current interface {
	MakeCurrent()
	DetachCurrent()
}

type Config struct {
	Width, Height int
	// Interval is the time between UI frames.
	Interval time.Duration
	// ReleaseInterval is the time between drains of the release queue.
	ReleaseInterval time.Duration
	// DrainTimeout bounds the wait for the render thread at shutdown.
	DrainTimeout time.Duration
}

// Producer is the UI thread. It draws the HUD, publishes each frame as a
// texture and takes back the textures the render thread has finished with.
type Producer struct {
	cfg      Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	hud      *HUD
	textures Textures
	current  Current
	cell     *handoff.Cell
	release  *handoff.ReleaseQueue
	visible  func() bool

	frame *image.RGBA
}

func NewProducer(cfg Config, log *zap.Logger, m *metrics.Metrics, hud *HUD, textures Textures, current Current,
	cell *handoff.Cell, release *handoff.ReleaseQueue, visible func() bool) *Producer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second / 30
	}
	if cfg.ReleaseInterval <= 0 {
		cfg.ReleaseInterval = 100 * time.Millisecond
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 2 * time.Second
	}
	return &Producer{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		hud:      hud,
		textures: textures,
		current:  current,
		cell:     cell,
		release:  release,
		visible:  visible,
		frame:    image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}
}

// Run produces frames until ctx is done. It then waits for drained to
// close, which the render thread does once every texture it held is in
// the release queue, and deletes all UI textures.
//
// Run locks its goroutine to an OS thread for the lifetime of the context.
func (p *Producer) Run(ctx context.Context, drained <-chan struct{}) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if p.current != nil {
		p.current.MakeCurrent()
		defer p.current.DetachCurrent()
	}
	p.log.Info("UI producer started", zap.Duration("interval", p.cfg.Interval))

	frameTick := time.NewTicker(p.cfg.Interval)
	defer frameTick.Stop()
	releaseTick := time.NewTicker(p.cfg.ReleaseInterval)
	defer releaseTick.Stop()

	for {
		select {
		case <-ctx.Done():
			p.shutdown(drained)
			return nil
		case <-frameTick.C:
			if p.visible() {
				p.produce()
			}
		case <-releaseTick.C:
			p.reclaim()
		}
	}
}

func (p *Producer) produce() {
	p.hud.Draw(p.frame)
	// Textures are sampled bottom row first.
	id, err := p.textures.Upload(transform.FlipV(p.frame))
	if err != nil {
		p.log.Warn("Failed to upload UI frame", zap.Error(err))
		return
	}
	// An unconsumed previous frame was never seen by the render thread.
	prev := p.cell.Publish(id)
	if prev != 0 {
		p.textures.Recycle(prev)
	}
	p.metrics.UIFrame(prev != 0)
}

func (p *Producer) reclaim() int {
	ids := p.release.Drain()
	if len(ids) == 0 {
		return 0
	}
	p.textures.Recycle(ids...)
	p.metrics.Released(len(ids))
	return len(ids)
}

func (p *Producer) shutdown(drained <-chan struct{}) {
	select {
	case <-drained:
	case <-time.After(p.cfg.DrainTimeout):
		p.log.Warn("Render thread did not return UI textures in time")
	}
	n := p.reclaim()
	p.textures.Destroy()
	p.log.Info("UI producer stopped", zap.Int("reclaimed", n))
}
