// Package scene holds a format-neutral scene graph and the parsers that
// produce it from model files.
//
// A Scene is read-only once returned by a parser: a tree of Nodes referencing
// Meshes by index, and Materials listing texture paths per TextureType.
package scene

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrParseFailed is returned when a model file yields no scene at all.
var ErrParseFailed = errors.New("scene parse failed")

// TextureType is the role a material assigns to a texture file.
type TextureType int

const (
	TextureDiffuse TextureType = iota + 1
	TextureSpecular
	TextureNormal
	TextureHeight
)

func (t TextureType) String() string {
	switch t {
	case TextureDiffuse:
		return "diffuse"
	case TextureSpecular:
		return "specular"
	case TextureNormal:
		return "normal"
	case TextureHeight:
		return "height"
	}
	return "unknown"
}

// PostProcess selects the steps applied after parsing.
type PostProcess uint32

const (
	// Triangulate splits polygons with more than three corners into fans.
	Triangulate PostProcess = 1 << iota
	// FlipUVs replaces every texture coordinate v with 1-v.
	FlipUVs
)

// Scene is a parsed model file.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material
	// Incomplete is set when the parser could not produce a full scene.
	Incomplete bool
}

// Node is one element of the scene tree.
type Node struct {
	Name     string
	Meshes   []int // indices into Scene.Meshes
	Children []*Node
}

// Face is one polygon of a mesh. After Triangulate, polygons have exactly
// three indices; points and lines are left as they are.
type Face struct {
	Indices []uint32
}

// Mesh is a parsed mesh. Positions, Normals and each TexCoords channel are
// parallel arrays; Normals may be empty.
type Mesh struct {
	Name          string
	Positions     []mgl32.Vec3
	Normals       []mgl32.Vec3
	TexCoords     [][]mgl32.Vec2
	MaterialIndex int
	Faces         []Face
}

// HasTexCoords reports whether the mesh carries the given UV channel.
func (m *Mesh) HasTexCoords(channel int) bool {
	return channel < len(m.TexCoords) && len(m.TexCoords[channel]) == len(m.Positions)
}

// IndexCount returns the number of face indices across all faces.
func (m *Mesh) IndexCount() int {
	n := 0
	for _, f := range m.Faces {
		n += len(f.Indices)
	}
	return n
}

// Material lists texture paths, as written in the model file, per type.
type Material struct {
	Name     string
	Textures map[TextureType][]string
}

// NewMaterial returns an empty material.
func NewMaterial(name string) *Material {
	return &Material{Name: name, Textures: make(map[TextureType][]string)}
}

// AddTexture appends path to the textures of type t. Empty paths are ignored.
func (m *Material) AddTexture(t TextureType, path string) {
	if path == "" {
		return
	}
	m.Textures[t] = append(m.Textures[t], path)
}

// TextureCount returns how many textures of type t the material has.
func (m *Material) TextureCount(t TextureType) int {
	return len(m.Textures[t])
}

// Texture returns the i-th texture path of type t.
func (m *Material) Texture(t TextureType, i int) (string, bool) {
	paths := m.Textures[t]
	if i < 0 || i >= len(paths) {
		return "", false
	}
	return paths[i], true
}
