package gpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// GL is a Device backed by the current OpenGL 4.1 core context. It must only
// be used from the thread that owns the context, after gl.Init.
type GL struct{}

// NewGL returns a Device for the current context.
func NewGL() *GL {
	return &GL{}
}

func glFormat(f PixelFormat) (int32, uint32, error) {
	switch f {
	case FormatRed:
		return gl.RED, gl.RED, nil
	case FormatRGB:
		return gl.RGB, gl.RGB, nil
	case FormatRGBA:
		return gl.RGBA, gl.RGBA, nil
	}
	return 0, 0, fmt.Errorf("unsupported pixel format %v", f)
}

// maxQueuedErrors bounds drainErrors; a lost context can report
// CONTEXT_LOST forever on some drivers.
const maxQueuedErrors = 32

// drainErrors clears errors left by earlier GL calls so the check after an
// upload only sees errors the upload caused. It returns how many it dropped.
func drainErrors(next func() uint32) int {
	n := 0
	for n < maxQueuedErrors && next() != gl.NO_ERROR {
		n++
	}
	return n
}

func (GL) UploadTexture(img TextureImage) (TextureHandle, error) {
	internalFormat, format, err := glFormat(img.Format)
	if err != nil {
		return InvalidTexture, err
	}
	if want := img.Width * img.Height * img.Format.Channels(); len(img.Pixels) < want {
		return InvalidTexture, fmt.Errorf("pixel data too short: have %d bytes, want %d", len(img.Pixels), want)
	}

	drainErrors(gl.GetError)

	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)

	// Red and RGB rows are not necessarily 4-byte aligned.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(img.Width), int32(img.Height), 0, format, gl.UNSIGNED_BYTE, gl.Ptr(img.Pixels))
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &textureID)
		return InvalidTexture, fmt.Errorf("texture upload failed: gl error 0x%x", code)
	}
	return TextureHandle(textureID), nil
}

func (GL) CreateMesh(vertices []byte, indices []uint32, layout VertexLayout) (MeshBuffers, error) {
	drainErrors(gl.GetError)

	var b MeshBuffers
	gl.GenVertexArrays(1, &b.VAO)
	gl.GenBuffers(1, &b.VBO)
	gl.GenBuffers(1, &b.EBO)

	gl.BindVertexArray(b.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, b.VBO)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.EBO)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}

	for _, a := range layout.Attribs {
		gl.EnableVertexAttribArray(a.Location)
		gl.VertexAttribPointerWithOffset(a.Location, a.Components, gl.FLOAT, false, layout.Stride, a.Offset)
	}

	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		GL{}.DeleteMesh(b)
		return MeshBuffers{}, fmt.Errorf("mesh upload failed: gl error 0x%x", code)
	}
	return b, nil
}

func (GL) BindTexture(unit uint32, tex TextureHandle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
}

func (GL) ActiveTexture(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
}

func (GL) SetUniformInt(program uint32, name string, value int32) {
	gl.Uniform1i(gl.GetUniformLocation(program, gl.Str(name+"\x00")), value)
}

func (GL) DrawIndexed(buffers MeshBuffers, count int32) {
	gl.BindVertexArray(buffers.VAO)
	gl.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

func (GL) DeleteMesh(buffers MeshBuffers) {
	gl.DeleteVertexArrays(1, &buffers.VAO)
	gl.DeleteBuffers(1, &buffers.VBO)
	gl.DeleteBuffers(1, &buffers.EBO)
}

func (GL) DeleteTexture(tex TextureHandle) {
	id := uint32(tex)
	gl.DeleteTextures(1, &id)
}
