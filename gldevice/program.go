package gldevice

import (
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshadertoyvr/shader"
)

// Compiler compiles and links programs with the current context.
type Compiler struct{}

func (Compiler) CompileShader(stage shader.Stage, src string) (uint32, error) {
	var kind uint32 = gl.FRAGMENT_SHADER
	if stage == shader.StageVertex {
		kind = gl.VERTEX_SHADER
	}
	id, log := compileShader(src, kind)
	if log != "" {
		return 0, &shader.CompileError{Stage: stage, Log: log}
	}
	return id, nil
}

func (Compiler) LinkProgram(vertex, fragment uint32) (uint32, error) {
	id, log := linkProgram(vertex, fragment)
	if log != "" {
		return 0, &shader.CompileError{Stage: shader.StageLink, Log: log}
	}
	return id, nil
}

func (Compiler) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (Compiler) DeleteShader(id uint32)  { gl.DeleteShader(id) }
func (Compiler) DeleteProgram(id uint32) { gl.DeleteProgram(id) }

// compileShader returns the shader, or zero and the info log on failure.
func compileShader(source string, kind uint32) (uint32, string) {
	id := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(id, 1, csources, nil)
	free()
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteShader(id)
		return 0, cleanLog(log, "shader compilation failed")
	}
	return id, ""
}

// linkProgram links without taking ownership of the shaders.
func linkProgram(vertex, fragment uint32) (uint32, string) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)
	gl.DetachShader(program, vertex)
	gl.DetachShader(program, fragment)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, cleanLog(log, "program link failed")
	}
	return program, ""
}

// cleanLog trims the terminator padding from a driver log. Some drivers
// report failure with an empty log.
func cleanLog(log, fallback string) string {
	log = strings.TrimSpace(strings.TrimRight(log, "\x00"))
	if log == "" {
		return fallback
	}
	return log
}

// newProgram builds one of the backend's own programs.
func newProgram(vertexSource, fragmentSource string) (uint32, error) {
	var c Compiler
	vs, err := c.CompileShader(shader.StageVertex, vertexSource)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vs)
	fs, err := c.CompileShader(shader.StageFragment, fragmentSource)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fs)
	return c.LinkProgram(vs, fs)
}
