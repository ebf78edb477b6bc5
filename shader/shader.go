package shader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/richinsley/goshadertoyvr/document"
	"github.com/richinsley/goshadertoyvr/inputs"
)

// Well-known uniform names. Channel names come from ChannelUniform and
// ChannelResolutionUniform.
const (
	UniformTime       = "iGlobalTime"
	UniformResolution = "iResolution"
	UniformPosition   = "iPos"
	UniformMouse      = "iMouse"
	UniformDate       = "iDate"
	// UniformRay is set per eye by the renderer; it maps clip space onto
	// view rays for the vertex stage.
	UniformRay = "iRayTransform"
)

// ImmersiveMarker in a shader's source asks for the shader to fill the view.
const ImmersiveMarker = "#pragma vr"

func ChannelUniform(i int) string {
	return fmt.Sprintf("iChannel%d", i)
}

func ChannelResolutionUniform(i int) string {
	return fmt.Sprintf("iChannelResolution[%d]", i)
}

// --- Desktop GL ---

const vertexShaderSourceGL = `#version 410 core
layout (location = 0) in vec2 in_vert;
uniform mat4 iRayTransform;
out vec3 iDir;
void main() {
    vec4 far = iRayTransform * vec4(in_vert, 1.0, 1.0);
    iDir = far.xyz / far.w;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

const preambleHeaderGL = `#version 410 core
`

// --- WebGL2 ---

const vertexShaderSourceES = `#version 300 es
precision highp float;
layout (location = 0) in vec2 in_vert;
uniform mat4 iRayTransform;
out vec3 iDir;
void main() {
    vec4 far = iRayTransform * vec4(in_vert, 1.0, 1.0);
    iDir = far.xyz / far.w;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

const preambleHeaderES = `#version 300 es
precision highp float;
precision highp int;
`

// --- Dynamic preamble / user code glue ---

const preambleUniforms = `
uniform vec3      iResolution;
uniform float     iGlobalTime;
uniform float     iChannelTime[4];
uniform vec4      iMouse;
uniform vec4      iDate;
uniform float     iSampleRate;
uniform vec3      iPos;
uniform vec3      iChannelResolution[4];
`

const preambleTrailer = `
in vec3 iDir;
out vec4 FragColor;
#define iTime iGlobalTime
`

// GeneratePreamble returns the text placed ahead of every user shader: the
// well-known uniforms, one sampler per channel typed by its target, the view
// ray input and the output variable. It ends with a #line directive so
// compiler diagnostics refer to the user's own line numbers.
func GeneratePreamble(d Dialect, targets [document.MaxChannels]inputs.Target) string {
	var b strings.Builder
	if d == DialectWebGL2 {
		b.WriteString(preambleHeaderES)
	} else {
		b.WriteString(preambleHeaderGL)
	}
	b.WriteString(preambleUniforms)
	for i, t := range targets {
		fmt.Fprintf(&b, "uniform %s iChannel%d;\n", t.SamplerType(), i)
	}
	b.WriteString(preambleTrailer)
	b.WriteString("#line 1\n")
	return b.String()
}

func GenerateVertexShader(d Dialect) string {
	if d == DialectWebGL2 {
		return vertexShaderSourceES
	}
	return vertexShaderSourceGL
}

var legacyRewrites = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\bgl_FragColor\b`), "FragColor"},
	{regexp.MustCompile(`\btexture2D\b`), "texture"},
	{regexp.MustCompile(`\btextureCube\b`), "texture"},
}

// Rewrite replaces legacy GLSL names with their core profile equivalents.
func Rewrite(src string) string {
	for _, r := range legacyRewrites {
		src = r.re.ReplaceAllLiteralString(src, r.repl)
	}
	return src
}

// IsImmersive reports whether src asks to fill the whole view.
func IsImmersive(src string) bool {
	return strings.Contains(src, ImmersiveMarker)
}

var (
	mainRe      = regexp.MustCompile(`\bvoid\s+main\s*\(`)
	mainImageRe = regexp.MustCompile(`\bmainImage\s*\(`)
)

// NeedsMain reports whether src is a Shadertoy style shader that defines
// mainImage but no main.
func NeedsMain(src string) bool {
	return mainImageRe.MatchString(src) && !mainRe.MatchString(src)
}

func GetMain() string {
	return `
void main(void)
{
    mainImage(FragColor, gl_FragCoord.xy);
}
`
}

// GetFragmentShader combines the preamble, the rewritten user code and, for
// Shadertoy style sources, the main wrapper.
func GetFragmentShader(d Dialect, targets [document.MaxChannels]inputs.Target, user string) string {
	src := GeneratePreamble(d, targets) + Rewrite(user)
	if NeedsMain(user) {
		src += GetMain()
	}
	return src
}
