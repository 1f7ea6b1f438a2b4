// Package model imports model files into drawable meshes.
package model

import (
	"github.com/braheezy/glmodel/internal/mesh"
)

// Model is the flattened mesh list of one imported file.
type Model struct {
	directory string
	meshes    []*mesh.Mesh
	warnings  []error
}

// Draw draws every mesh in import order with the given shader program.
func (m *Model) Draw(program uint32) {
	for _, msh := range m.meshes {
		msh.Draw(program)
	}
}

// Release deletes the GPU buffers of every mesh. Cached textures are owned by
// the texture cache and are not released here.
func (m *Model) Release() {
	for _, msh := range m.meshes {
		msh.Release()
	}
}

// Directory is the directory texture paths were resolved against.
func (m *Model) Directory() string {
	return m.directory
}

// Meshes returns the meshes in pre-order of the scene tree.
func (m *Model) Meshes() []*mesh.Mesh {
	return m.meshes
}

// Warnings returns the non-fatal problems met during import, such as
// textures that could not be loaded.
func (m *Model) Warnings() []error {
	return m.warnings
}

// IndexCount returns the total number of indices drawn per frame.
func (m *Model) IndexCount() int {
	n := 0
	for _, msh := range m.meshes {
		n += msh.IndexCount()
	}
	return n
}

// VertexCount returns the total number of vertices uploaded.
func (m *Model) VertexCount() int {
	n := 0
	for _, msh := range m.meshes {
		n += msh.VertexCount()
	}
	return n
}
