package shader

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/richinsley/goshadertoyvr/document"
	"github.com/richinsley/goshadertoyvr/inputs"
	"github.com/richinsley/goshadertoyvr/metrics"
	"go.uber.org/zap"
)

// Stage names a step of turning source text into a program.
type Stage string

const (
	StageTranslate Stage = "translate"
	StageVertex    Stage = "vertex"
	StageFragment  Stage = "fragment"
	StageLink      Stage = "link"
)

// CompileError carries the diagnostics of a failed build.
type CompileError struct {
	Stage Stage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s shader build failed: %s", e.Stage, e.Log)
}

func asCompileError(stage Stage, err error) *CompileError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompileError{Stage: stage, Log: err.Error()}
}

// Dialect is the language user shaders are written in.
type Dialect string

const (
	// DialectGLSL is desktop GLSL 4.10, compiled as written.
	DialectGLSL Dialect = "glsl"
	// DialectWebGL2 is GLSL ES 3.00 as used on shadertoy.com, translated to
	// GLSL 4.10 before compiling.
	DialectWebGL2 Dialect = "webgl2"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case "", DialectGLSL:
		return DialectGLSL, nil
	case DialectWebGL2:
		return DialectWebGL2, nil
	default:
		return "", fmt.Errorf("unknown shader dialect %q", s)
	}
}

// Compiler compiles and links GPU programs. A failed compile or link
// returns a *CompileError holding the driver's log. UniformLocation
// returns -1 for names the program does not use.
type Compiler interface {
	CompileShader(stage Stage, src string) (uint32, error)
	LinkProgram(vertex, fragment uint32) (uint32, error)
	UniformLocation(program uint32, name string) int32
	DeleteShader(id uint32)
	DeleteProgram(id uint32)
}

// Translator converts a WebGL2 shader to desktop GLSL and reports the names
// it gave each declared variable.
type Translator interface {
	Translate(stage string, src string) (code string, names map[string]string, err error)
}

// Program is a linked shader program and the uniforms it actually uses.
type Program struct {
	ID uint32
	// Uniforms maps the well-known names the program uses onto their
	// locations. Unused names are absent.
	Uniforms  map[string]int32
	Targets   [document.MaxChannels]inputs.Target
	Immersive bool
	// Source is the user text the program was built from.
	Source string
}

// Location returns the location of a well-known uniform.
func (p *Program) Location(name string) (int32, bool) {
	loc, ok := p.Uniforms[name]
	return loc, ok
}

type Option func(*Builder)

func WithTranslator(t Translator) Option {
	return func(b *Builder) { b.translator = t }
}

func WithDialect(d Dialect) Option {
	return func(b *Builder) { b.dialect = d }
}

func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// Builder owns the current shader program. A failed build leaves the
// current program in place. The vertex stage is compiled once and shared
// by every program.
//
// A Builder belongs to the render thread.
type Builder struct {
	compiler   Compiler
	translator Translator
	dialect    Dialect
	now        func() time.Time
	log        *zap.Logger
	metrics    *metrics.Metrics

	vertex      uint32
	vertexNames map[string]string
	current     *Program
	start       time.Time
	onBuild     []func(*Program)
}

func NewBuilder(c Compiler, log *zap.Logger, opts ...Option) (*Builder, error) {
	b := &Builder{
		compiler: c,
		dialect:  DialectGLSL,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.dialect == DialectWebGL2 && b.translator == nil {
		return nil, fmt.Errorf("the %s dialect needs a translator", b.dialect)
	}

	src, names, err := b.translate(StageVertex, GenerateVertexShader(b.dialect))
	if err != nil {
		return nil, err
	}
	vs, err := c.CompileShader(StageVertex, src)
	if err != nil {
		return nil, asCompileError(StageVertex, err)
	}
	b.vertex = vs
	b.vertexNames = names
	b.start = b.now()
	return b, nil
}

// OnBuild registers fn to run after every successful build.
func (b *Builder) OnBuild(fn func(*Program)) {
	b.onBuild = append(b.onBuild, fn)
}

func (b *Builder) translate(stage Stage, src string) (string, map[string]string, error) {
	if b.dialect != DialectWebGL2 {
		return src, nil, nil
	}
	code, names, err := b.translator.Translate(string(stage), src)
	if err != nil {
		return "", nil, &CompileError{Stage: StageTranslate, Log: err.Error()}
	}
	return code, names, nil
}

// Build compiles source against the given channel targets. On success the
// new program becomes current, the old one is deleted and shader time
// restarts from zero. On failure the error is a *CompileError and nothing
// changes.
func (b *Builder) Build(source string, targets [document.MaxChannels]inputs.Target) (*Program, error) {
	p, err := b.build(source, targets)
	b.metrics.CompileResult(err == nil)
	if err != nil {
		b.log.Warn("Shader build failed", zap.Error(err))
		return nil, err
	}

	old := b.current
	b.current = p
	if old != nil {
		b.compiler.DeleteProgram(old.ID)
	}
	b.start = b.now()
	b.log.Info("Shader built",
		zap.Uint32("program", p.ID),
		zap.Bool("immersive", p.Immersive),
		zap.Int("uniforms", len(p.Uniforms)))
	for _, fn := range b.onBuild {
		fn(p)
	}
	return p, nil
}

func (b *Builder) build(source string, targets [document.MaxChannels]inputs.Target) (*Program, error) {
	full := GetFragmentShader(b.dialect, targets, source)
	code, names, err := b.translate(StageFragment, full)
	if err != nil {
		return nil, err
	}

	fs, err := b.compiler.CompileShader(StageFragment, code)
	if err != nil {
		return nil, asCompileError(StageFragment, err)
	}
	id, err := b.compiler.LinkProgram(b.vertex, fs)
	b.compiler.DeleteShader(fs)
	if err != nil {
		return nil, asCompileError(StageLink, err)
	}

	return &Program{
		ID:        id,
		Uniforms:  b.lookupUniforms(id, names),
		Targets:   targets,
		Immersive: IsImmersive(source),
		Source:    source,
	}, nil
}

func wellKnownUniforms() []string {
	names := []string{UniformTime, UniformResolution, UniformPosition, UniformMouse, UniformDate, UniformRay}
	for i := 0; i < document.MaxChannels; i++ {
		names = append(names, ChannelUniform(i), ChannelResolutionUniform(i))
	}
	return names
}

// mapped returns the name the translator gave a uniform. Array elements
// are looked up by their base name.
func (b *Builder) mapped(name string, names map[string]string) string {
	if b.dialect != DialectWebGL2 {
		return name
	}
	base, index := name, ""
	if i := strings.IndexByte(name, '['); i >= 0 {
		base, index = name[:i], name[i:]
	}
	if m, ok := names[base]; ok {
		return m + index
	}
	if m, ok := b.vertexNames[base]; ok {
		return m + index
	}
	return name
}

func (b *Builder) lookupUniforms(program uint32, names map[string]string) map[string]int32 {
	uniforms := make(map[string]int32)
	for _, name := range wellKnownUniforms() {
		if loc := b.compiler.UniformLocation(program, b.mapped(name, names)); loc >= 0 {
			uniforms[name] = loc
		}
	}
	return uniforms
}

// Current is the program in use, nil before the first successful build.
func (b *Builder) Current() *Program {
	return b.current
}

// Elapsed is the shader time in seconds since the last successful build or
// RestartTime.
func (b *Builder) Elapsed() float32 {
	return float32(b.now().Sub(b.start).Seconds())
}

func (b *Builder) RestartTime() {
	b.start = b.now()
}

func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// Release deletes the current program and the shared vertex shader.
func (b *Builder) Release() {
	if b.current != nil {
		b.compiler.DeleteProgram(b.current.ID)
		b.current = nil
	}
	if b.vertex != 0 {
		b.compiler.DeleteShader(b.vertex)
		b.vertex = 0
	}
}
