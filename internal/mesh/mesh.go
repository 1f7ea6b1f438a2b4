// Package mesh uploads indexed triangle meshes and draws them with their
// material textures bound.
package mesh

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/braheezy/glmodel/internal/gpu"
	"github.com/braheezy/glmodel/internal/texture"
)

var (
	// ErrMissingIndices is returned for a mesh with vertices but no indices.
	ErrMissingIndices = errors.New("mesh has vertices but no indices")
	// ErrIndexOutOfRange is returned when an index does not address a vertex.
	ErrIndexOutOfRange = errors.New("mesh index out of range")
)

// Vertex is the interleaved vertex uploaded to the GPU. Its attribute
// declaration is derived from the struct by Layout.
type Vertex struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	TexCoords mgl32.Vec2
}

// Attribute locations expected by the vertex shader.
const (
	PositionLocation = 0
	NormalLocation   = 1
	TexCoordLocation = 2
)

// Layout describes Vertex to the GPU.
func Layout() gpu.VertexLayout {
	var v Vertex
	return gpu.VertexLayout{
		Stride: int32(unsafe.Sizeof(v)),
		Attribs: []gpu.VertexAttrib{
			{Location: PositionLocation, Components: 3, Offset: unsafe.Offsetof(v.Position)},
			{Location: NormalLocation, Components: 3, Offset: unsafe.Offsetof(v.Normal)},
			{Location: TexCoordLocation, Components: 2, Offset: unsafe.Offsetof(v.TexCoords)},
		},
	}
}

// Mesh is an uploaded vertex/index buffer pair plus the textures bound when
// it is drawn. It is not modified after New.
type Mesh struct {
	vertices []Vertex
	indices  []uint32
	textures []texture.Texture
	buffers  gpu.MeshBuffers
	device   gpu.Device
}

// New takes ownership of the three slices, validates the indices and uploads
// the geometry to device.
func New(device gpu.Device, vertices []Vertex, indices []uint32, textures []texture.Texture) (*Mesh, error) {
	if len(indices) == 0 && len(vertices) > 0 {
		return nil, ErrMissingIndices
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("%w: indices[%d] = %d, vertex count %d", ErrIndexOutOfRange, i, idx, len(vertices))
		}
	}

	m := &Mesh{
		vertices: vertices,
		indices:  indices,
		textures: textures,
		device:   device,
	}

	buffers, err := device.CreateMesh(vertexBytes(vertices), indices, Layout())
	if err != nil {
		return nil, fmt.Errorf("uploading mesh: %w", err)
	}
	m.buffers = buffers
	return m, nil
}

func vertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	size := len(vertices) * int(unsafe.Sizeof(Vertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

// Draw binds texture i to unit i, points the sampler uniform named by
// texture.UniformName at it, draws every index and leaves unit 0 active.
func (m *Mesh) Draw(program uint32) {
	ordinals := make(map[texture.Kind]int, 2)
	for i, tex := range m.textures {
		ordinals[tex.Kind]++
		m.device.BindTexture(uint32(i), tex.ID)
		m.device.SetUniformInt(program, texture.UniformName(tex.Kind, ordinals[tex.Kind]), int32(i))
	}

	m.device.DrawIndexed(m.buffers, int32(len(m.indices)))

	// Set everything back to defaults
	m.device.ActiveTexture(0)
}

// Release deletes the mesh's GPU buffers. Shared textures are left alone.
func (m *Mesh) Release() {
	m.device.DeleteMesh(m.buffers)
	m.buffers = gpu.MeshBuffers{}
}

func (m *Mesh) Vertices() []Vertex { return m.vertices }
func (m *Mesh) Indices() []uint32 { return m.indices }
func (m *Mesh) Textures() []texture.Texture { return m.textures }
func (m *Mesh) Buffers() gpu.MeshBuffers { return m.buffers }
func (m *Mesh) IndexCount() int { return len(m.indices) }
func (m *Mesh) VertexCount() int { return len(m.vertices) }
