package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	margin     = 16
	lineHeight = 16
	// maxErrorLines keeps a long compile log from running off the panel.
	maxErrorLines = 24
)

var (
	panelColor = color.RGBA{R: 16, G: 16, B: 24, A: 200}
	textColor  = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	errorColor = color.RGBA{R: 255, G: 96, B: 96, A: 255}
	okColor    = color.RGBA{R: 120, G: 220, B: 120, A: 255}
)

// HUD is the status panel shown on the UI surface. The render thread
// reports to it and the UI thread draws it.
type HUD struct {
	mu              sync.Mutex
	title           string
	fps             float32
	resolutionScale float32
	positionScale   float32
	compiled        bool
	compileLog      string
}

func NewHUD(title string) *HUD {
	return &HUD{title: title, resolutionScale: 1, positionScale: 1}
}

func (h *HUD) CompileSucceeded() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compiled = true
	h.compileLog = ""
}

func (h *HUD) CompileFailed(log string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compiled = false
	h.compileLog = log
}

func (h *HUD) FPS(fps float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fps = fps
}

func (h *HUD) ResolutionScale(scale float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolutionScale = scale
}

func (h *HUD) PositionScale(scale float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.positionScale = scale
}

// SetTitle changes the heading, usually to the loaded shader's name.
func (h *HUD) SetTitle(title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.title = title
}

type line struct {
	text string
	col  color.RGBA
}

func (h *HUD) lines() []line {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []line{
		{h.title, textColor},
		{fmt.Sprintf("FPS: %.1f", h.fps), textColor},
		{fmt.Sprintf("Resolution: %.0f%%", h.resolutionScale*100), textColor},
		{fmt.Sprintf("Position scale: %.2f", h.positionScale), textColor},
	}
	switch {
	case h.compileLog != "":
		out = append(out, line{"Compile failed:", errorColor})
		logLines := strings.Split(strings.TrimSpace(h.compileLog), "\n")
		if len(logLines) > maxErrorLines {
			logLines = append(logLines[:maxErrorLines], "...")
		}
		for _, l := range logLines {
			out = append(out, line{l, errorColor})
		}
	case h.compiled:
		out = append(out, line{"Compiled", okColor})
	}
	return out
}

// Lines is the text of the panel, top to bottom.
func (h *HUD) Lines() []string {
	ls := h.lines()
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.text
	}
	return out
}

// Draw renders the panel into dst, replacing its contents.
func (h *HUD) Draw(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	ls := h.lines()

	b := dst.Bounds()
	panel := image.Rect(b.Min.X+margin/2, b.Min.Y+margin/2, b.Max.X-margin/2,
		min(b.Min.Y+margin+len(ls)*lineHeight+margin/2, b.Max.Y-margin/2))
	draw.Draw(dst, panel, image.NewUniform(panelColor), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: dst, Face: basicfont.Face7x13}
	for i, l := range ls {
		d.Src = image.NewUniform(l.col)
		d.Dot = fixed.P(b.Min.X+margin, b.Min.Y+margin+(i+1)*lineHeight-3)
		d.DrawString(l.text)
	}
}
