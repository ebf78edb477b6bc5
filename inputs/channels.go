package inputs

import (
	"fmt"

	"github.com/richinsley/goshadertoyvr/document"
	"go.uber.org/zap"
)

// Slot is what one iChannel input is bound to. A slot with no texture is
// empty and samples nothing.
type Slot struct {
	Texture
	Source string
}

func (s Slot) IsEmpty() bool {
	return s.ID == 0
}

// Channels holds the four iChannel slots.
type Channels struct {
	resolver *Resolver
	slots    [document.MaxChannels]Slot
	log      *zap.Logger
}

func NewChannels(resolver *Resolver, log *zap.Logger) *Channels {
	return &Channels{resolver: resolver, log: log}
}

// Set binds slot to the resource named by id and reports whether the slot
// changed. Requesting the identifier the slot already holds does nothing;
// the comparison is literal, so two aliases of one resource both load.
// An empty id clears the slot. Video and audio inputs are accepted but
// leave the slot empty. A resource that fails to load leaves the slot empty
// and is returned as a *ResourceLoadError.
func (c *Channels) Set(slot int, kind document.Kind, id string) (bool, error) {
	if slot < 0 || slot >= len(c.slots) {
		return false, fmt.Errorf("invalid channel index %d", slot)
	}
	old := c.slots[slot]
	if id == old.Source {
		return false, nil
	}

	next := Slot{Texture: Texture{Target: TargetPlane}, Source: id}
	var err error
	switch kind {
	case document.KindNone:
		if id != "" {
			c.log.Warn("Channel has a source but no type, leaving it empty", zap.Int("channel", slot), zap.String("source", id))
		}
	case document.KindTexture, document.KindCubemap:
		if id == "" {
			break
		}
		target := TargetPlane
		if kind == document.KindCubemap {
			target = TargetCubemap
		}
		var tex Texture
		tex, err = c.resolver.Resolve(id, target)
		if err != nil {
			c.log.Warn("Failed to load channel texture", zap.Int("channel", slot), zap.String("source", id), zap.Error(err))
			next = Slot{Texture: Texture{Target: TargetPlane}}
		} else {
			next.Texture = tex
		}
	default:
		c.log.Warn("Unsupported channel type, leaving channel empty", zap.Int("channel", slot), zap.String("type", string(kind)))
	}

	c.slots[slot] = next
	return next != old, err
}

// Slots returns a copy of the current slot state.
func (c *Channels) Slots() [document.MaxChannels]Slot {
	return c.slots
}

// Targets returns the texture target of each slot, used to declare the
// matching sampler types.
func (c *Channels) Targets() [document.MaxChannels]Target {
	var t [document.MaxChannels]Target
	for i, s := range c.slots {
		t[i] = s.Target
	}
	return t
}

// Clear empties every slot. Textures stay in the resolver's cache.
func (c *Channels) Clear() {
	for i := range c.slots {
		c.slots[i] = Slot{}
	}
}
