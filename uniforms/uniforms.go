// Package uniforms turns a shader program's active uniforms into the list of
// updates the render loop performs every frame.
package uniforms

import (
	"fmt"

	"github.com/richinsley/goshadertoyvr/document"
	"github.com/richinsley/goshadertoyvr/inputs"
	"github.com/richinsley/goshadertoyvr/shader"
	"go.uber.org/zap"
)

// Quantity is a per-frame value an action reads from FrameValues.
type Quantity int

const (
	ElapsedTime Quantity = iota
	Resolution
	ViewerPosition
)

func (q Quantity) String() string {
	switch q {
	case ElapsedTime:
		return "elapsed-time"
	case Resolution:
		return "resolution"
	case ViewerPosition:
		return "viewer-position"
	default:
		return fmt.Sprintf("quantity(%d)", int(q))
	}
}

// Action is one per-frame uniform update: SetScalar, SetVector or
// BindChannel.
type Action interface {
	isAction()
}

type SetScalar struct {
	Location int32
	Value    Quantity
}

type SetVector struct {
	Location int32
	Value    Quantity
}

// BindChannel binds a slot's texture to texture unit Slot and points the
// sampler at that unit. The texture is captured when the list is built, so
// the list must be rebuilt when a slot changes.
type BindChannel struct {
	Location int32
	Slot     int
	Target   inputs.Target
	Texture  uint32
	// ResolutionLocation is -1 when the program does not read the
	// channel's iChannelResolution entry.
	ResolutionLocation int32
	Resolution         [3]float32
}

func (SetScalar) isAction()   {}
func (SetVector) isAction()   {}
func (BindChannel) isAction() {}

// FrameValues are the quantities of the frame being drawn.
type FrameValues struct {
	Elapsed    float32
	Resolution [3]float32
	Position   [3]float32
}

func (v FrameValues) scalar(q Quantity) float32 {
	if q == ElapsedTime {
		return v.Elapsed
	}
	return 0
}

func (v FrameValues) vector(q Quantity) [3]float32 {
	switch q {
	case Resolution:
		return v.Resolution
	case ViewerPosition:
		return v.Position
	}
	return [3]float32{}
}

// Sink receives uniform updates. The GPU implementation forwards to the
// driver with the program in use.
type Sink interface {
	Uniform1f(location int32, v float32)
	Uniform3f(location int32, v [3]float32)
	Uniform1i(location int32, v int32)
	BindTexture(unit int, target inputs.Target, texture uint32)
}

type Binder struct {
	log *zap.Logger
}

func NewBinder(log *zap.Logger) *Binder {
	return &Binder{log: log}
}

// Rebuild lists the updates for p in the order time, resolution, position,
// channel 0 to 3. Uniforms the program does not use and empty slots add
// nothing. A slot whose target differs from the sampler type the program
// declared is skipped with a warning.
func (b *Binder) Rebuild(p *shader.Program, slots [document.MaxChannels]inputs.Slot) []Action {
	if p == nil {
		return nil
	}
	var actions []Action
	if loc, ok := p.Location(shader.UniformTime); ok {
		actions = append(actions, SetScalar{Location: loc, Value: ElapsedTime})
	}
	if loc, ok := p.Location(shader.UniformResolution); ok {
		actions = append(actions, SetVector{Location: loc, Value: Resolution})
	}
	if loc, ok := p.Location(shader.UniformPosition); ok {
		actions = append(actions, SetVector{Location: loc, Value: ViewerPosition})
	}
	for i, slot := range slots {
		loc, ok := p.Location(shader.ChannelUniform(i))
		if !ok || slot.IsEmpty() {
			continue
		}
		if slot.Target != p.Targets[i] {
			b.log.Warn("Channel texture does not match the shader's sampler, not binding it",
				zap.Int("channel", i),
				zap.Stringer("texture", slot.Target),
				zap.String("sampler", p.Targets[i].SamplerType()))
			continue
		}
		resLoc, ok := p.Location(shader.ChannelResolutionUniform(i))
		if !ok {
			resLoc = -1
		}
		actions = append(actions, BindChannel{
			Location:           loc,
			Slot:               i,
			Target:             slot.Target,
			Texture:            slot.ID,
			ResolutionLocation: resLoc,
			Resolution:         slot.Resolution(),
		})
	}
	return actions
}

// Apply performs actions in order.
func Apply(actions []Action, sink Sink, v FrameValues) {
	for _, a := range actions {
		switch a := a.(type) {
		case SetScalar:
			sink.Uniform1f(a.Location, v.scalar(a.Value))
		case SetVector:
			sink.Uniform3f(a.Location, v.vector(a.Value))
		case BindChannel:
			sink.BindTexture(a.Slot, a.Target, a.Texture)
			sink.Uniform1i(a.Location, int32(a.Slot))
			if a.ResolutionLocation >= 0 {
				sink.Uniform3f(a.ResolutionLocation, a.Resolution)
			}
		}
	}
}
