package gldevice

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshadertoyvr/inputs"
	"github.com/stretchr/testify/assert"
)

func TestFilterMode(t *testing.T) {
	tests := []struct {
		filter   string
		min, mag int32
	}{
		{"mipmap", gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR},
		{"linear", gl.LINEAR, gl.LINEAR},
		{"nearest", gl.NEAREST, gl.NEAREST},
		{"", gl.LINEAR, gl.LINEAR},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			min, mag := filterMode(tt.filter)
			assert.Equal(t, tt.min, min)
			assert.Equal(t, tt.mag, mag)
		})
	}
}

func TestWrapMode(t *testing.T) {
	assert.Equal(t, int32(gl.CLAMP_TO_EDGE), wrapMode("clamp"))
	assert.Equal(t, int32(gl.REPEAT), wrapMode("repeat"))
	assert.Equal(t, int32(gl.REPEAT), wrapMode(""))
}

func TestGLTarget(t *testing.T) {
	assert.Equal(t, uint32(gl.TEXTURE_2D), glTarget(inputs.TargetPlane))
	assert.Equal(t, uint32(gl.TEXTURE_CUBE_MAP), glTarget(inputs.TargetCubemap))
}

func TestCleanLog(t *testing.T) {
	assert.Equal(t, "0:3(1): error: x", cleanLog("0:3(1): error: x\n\x00\x00", "failed"))
	assert.Equal(t, "failed", cleanLog("\x00", "failed"))
}

func TestNilFenceIsSignaled(t *testing.T) {
	var f *Fence
	assert.True(t, f.Signaled())
	f.Delete()
	assert.True(t, (&Fence{}).Signaled())
}
