// Package shader compiles and links GLSL programs.
package shader

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

type Shader struct {
	id uint32
}

// New reads a vertex and fragment shader from disk and links them.
func New(vertexPath, fragmentPath string) (*Shader, error) {
	vs, fs, err := readSources(vertexPath, fragmentPath)
	if err != nil {
		return nil, err
	}
	return FromSource(vs, fs)
}

func readSources(vertexPath, fragmentPath string) (string, string, error) {
	vs, err := os.ReadFile(vertexPath)
	if err != nil {
		return "", "", fmt.Errorf("reading vertex shader: %w", err)
	}
	fs, err := os.ReadFile(fragmentPath)
	if err != nil {
		return "", "", fmt.Errorf("reading fragment shader: %w", err)
	}
	return string(vs), string(fs), nil
}

// FromSource compiles and links the given GLSL sources.
func FromSource(vertexSource, fragmentSource string) (*Shader, error) {
	vertexShader, err := compile(gl.VERTEX_SHADER, vertexSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile vertex shader: %w", err)
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compile(gl.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile fragment shader: %w", err)
	}
	defer gl.DeleteShader(fragmentShader)

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.LinkProgram(id)

	var success int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &success)
	if success == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := make([]uint8, logLength+1)
		gl.GetProgramInfoLog(id, logLength, nil, &infoLog[0])
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("failed to link shader program: %s", trimLog(infoLog))
	}

	return &Shader{id: id}, nil
}

func compile(kind uint32, source string) (uint32, error) {
	s := gl.CreateShader(kind)
	csource, free := gl.Strs(nullTerminated(source))
	gl.ShaderSource(s, 1, csource, nil)
	free()
	gl.CompileShader(s)

	var success int32
	gl.GetShaderiv(s, gl.COMPILE_STATUS, &success)
	if success == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(s, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := make([]uint8, logLength+1)
		gl.GetShaderInfoLog(s, logLength, nil, &infoLog[0])
		gl.DeleteShader(s)
		return 0, fmt.Errorf("%s", trimLog(infoLog))
	}
	return s, nil
}

// nullTerminated appends the NUL go-gl expects on C strings.
func nullTerminated(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func trimLog(b []uint8) string {
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
}

func (s *Shader) ID() uint32 {
	return s.id
}

func (s *Shader) Use() {
	gl.UseProgram(s.id)
}

func (s *Shader) Delete() {
	gl.DeleteProgram(s.id)
}

func (s *Shader) location(name string) int32 {
	return gl.GetUniformLocation(s.id, gl.Str(nullTerminated(name)))
}

func (s *Shader) SetBool(name string, value bool) {
	var v int32
	if value {
		v = 1
	}
	gl.Uniform1i(s.location(name), v)
}

func (s *Shader) SetInt(name string, value int32) {
	gl.Uniform1i(s.location(name), value)
}

func (s *Shader) SetFloat(name string, value float32) {
	gl.Uniform1f(s.location(name), value)
}

func (s *Shader) SetVec3(name string, v mgl32.Vec3) {
	gl.Uniform3f(s.location(name), v.X(), v.Y(), v.Z())
}

func (s *Shader) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.location(name), 1, false, &m[0])
}
