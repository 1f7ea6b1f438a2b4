// Package gpu is the boundary between the model loader and the graphics API.
//
// Everything that creates, binds or draws GPU objects goes through a Device so
// the loader can be exercised without a live OpenGL context.
package gpu

import "fmt"

// TextureHandle identifies a texture object living on the GPU.
type TextureHandle uint32

// InvalidTexture is the handle of a texture that failed to load. Binding it
// leaves the unit empty.
const InvalidTexture TextureHandle = 0

// PixelFormat is the layout of one decoded pixel.
type PixelFormat int

const (
	FormatRed PixelFormat = iota + 1
	FormatRGB
	FormatRGBA
)

// Channels returns the number of bytes per pixel.
func (f PixelFormat) Channels() int {
	switch f {
	case FormatRed:
		return 1
	case FormatRGB:
		return 3
	case FormatRGBA:
		return 4
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRed:
		return "red"
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// TextureImage is a decoded image ready to be uploaded. Rows are tightly
// packed, bottom row first when the image was flipped.
type TextureImage struct {
	Width, Height int
	Format        PixelFormat
	Pixels        []byte
}

// MeshBuffers holds the vertex array and its two buffers.
type MeshBuffers struct {
	VAO uint32
	VBO uint32
	EBO uint32
}

// VertexAttrib describes one float attribute inside an interleaved vertex.
type VertexAttrib struct {
	Location   uint32
	Components int32
	Offset     uintptr
}

// VertexLayout is the stride and attribute list of an interleaved vertex buffer.
type VertexLayout struct {
	Stride  int32
	Attribs []VertexAttrib
}

// Device is the set of GPU operations the loader needs.
type Device interface {
	// UploadTexture creates a 2D texture from img with repeat wrapping,
	// trilinear minification, linear magnification and generated mipmaps.
	UploadTexture(img TextureImage) (TextureHandle, error)
	// CreateMesh uploads vertex bytes and indices with a static usage hint and
	// declares the attributes of layout on a new vertex array.
	CreateMesh(vertices []byte, indices []uint32, layout VertexLayout) (MeshBuffers, error)
	// BindTexture makes unit active and binds tex to it.
	BindTexture(unit uint32, tex TextureHandle)
	// ActiveTexture selects the active texture unit.
	ActiveTexture(unit uint32)
	// SetUniformInt sets an integer uniform on program.
	SetUniformInt(program uint32, name string, value int32)
	// DrawIndexed draws count indices as triangles from buffers.
	DrawIndexed(buffers MeshBuffers, count int32)
	// DeleteMesh releases the vertex array and both buffers.
	DeleteMesh(buffers MeshBuffers)
	// DeleteTexture releases a texture.
	DeleteTexture(tex TextureHandle)
}
