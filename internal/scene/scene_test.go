package scene

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestTriangulate(t *testing.T) {
	tests := []struct {
		name      string
		face      Face
		wantFaces [][]uint32
	}{
		{"triangle", Face{Indices: []uint32{0, 1, 2}}, [][]uint32{{0, 1, 2}}},
		{"quad", Face{Indices: []uint32{0, 1, 2, 3}}, [][]uint32{{0, 1, 2}, {0, 2, 3}}},
		{"pentagon", Face{Indices: []uint32{4, 5, 6, 7, 8}}, [][]uint32{{4, 5, 6}, {4, 6, 7}, {4, 7, 8}}},
		{"line", Face{Indices: []uint32{1, 2}}, [][]uint32{{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := triangulate([]Face{tt.face})
			if len(got) != len(tt.wantFaces) {
				t.Fatalf("got %d faces, want %d", len(got), len(tt.wantFaces))
			}
			for i, want := range tt.wantFaces {
				if fmt.Sprint(got[i].Indices) != fmt.Sprint(want) {
					t.Errorf("face %d = %v, want %v", i, got[i].Indices, want)
				}
			}
		})
	}
}

func TestApplyFlipUVs(t *testing.T) {
	s := &Scene{Meshes: []*Mesh{{
		Positions: []mgl32.Vec3{{}, {}},
		TexCoords: [][]mgl32.Vec2{{{0.25, 0.25}, {1, 0}}},
		Faces:     []Face{{Indices: []uint32{0, 1, 0, 1}}},
	}}}

	s.apply(FlipUVs)

	uv := s.Meshes[0].TexCoords[0]
	if uv[0] != (mgl32.Vec2{0.25, 0.75}) || uv[1] != (mgl32.Vec2{1, 1}) {
		t.Errorf("flipped uvs = %v", uv)
	}
	if len(s.Meshes[0].Faces) != 1 {
		t.Error("faces must not be triangulated without the Triangulate flag")
	}
}

func TestMaterialTextures(t *testing.T) {
	m := NewMaterial("brick")
	m.AddTexture(TextureDiffuse, "a.png")
	m.AddTexture(TextureDiffuse, "")
	m.AddTexture(TextureDiffuse, "b.png")

	if n := m.TextureCount(TextureDiffuse); n != 2 {
		t.Fatalf("TextureCount = %d, want 2", n)
	}
	if p, ok := m.Texture(TextureDiffuse, 1); !ok || p != "b.png" {
		t.Errorf("Texture(1) = %q, %v", p, ok)
	}
	if _, ok := m.Texture(TextureSpecular, 0); ok {
		t.Error("expected no specular texture")
	}
}

func TestParseFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"unsupported extension", filepath.Join(dir, "model.fbx")},
		{"missing obj", filepath.Join(dir, "missing.obj")},
		{"missing gltf", filepath.Join(dir, "missing.gltf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseFile(tt.path, Triangulate|FlipUVs)
			if !errors.Is(err, ErrParseFailed) {
				t.Errorf("expected ErrParseFailed, got %v", err)
			}
			if s != nil {
				t.Error("expected no scene")
			}
		})
	}
}

const testOBJ = `mtllib scene.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
g first
usemtl brick
f 1/1/1 2/2/1 3/3/1
g second
usemtl stone
f 1/1/1 2/2/1 3/3/1 4/4/1
`

const testMTL = `newmtl brick
Kd 1 1 1
map_Kd brick.png
map_Ks brick_spec.png

newmtl stone
Kd 1 1 1
map_Kd stone.png
`

func TestParseOBJ(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(objPath, []byte(testOBJ), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte(testMTL), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := ParseFile(objPath, Triangulate|FlipUVs)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if s.Incomplete {
		t.Error("scene unexpectedly incomplete")
	}
	if s.Root == nil {
		t.Fatal("missing root node")
	}

	total := 0
	diffuse := map[string]bool{}
	for _, child := range s.Root.Children {
		for _, mi := range child.Meshes {
			m := s.Meshes[mi]
			total += m.IndexCount()
			if !m.HasTexCoords(0) {
				t.Errorf("mesh %q lost its texture coordinates", m.Name)
			}
			for _, f := range m.Faces {
				for _, idx := range f.Indices {
					if int(idx) >= len(m.Positions) {
						t.Errorf("mesh %q: index %d out of range", m.Name, idx)
					}
				}
			}
			mat := s.Materials[m.MaterialIndex]
			for i := 0; i < mat.TextureCount(TextureDiffuse); i++ {
				p, _ := mat.Texture(TextureDiffuse, i)
				diffuse[p] = true
			}
		}
	}

	if total != 9 {
		t.Errorf("total face indices = %d, want 9", total)
	}
	if !diffuse["brick.png"] || !diffuse["stone.png"] {
		t.Errorf("diffuse textures = %v", diffuse)
	}
}

func TestParseOBJMissingMaterialLibrary(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "scene.obj")
	if err := os.WriteFile(objPath, []byte(testOBJ), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := ParseOBJ(objPath)
	if err != nil {
		t.Fatalf("ParseOBJ: %v", err)
	}
	if !s.Incomplete {
		t.Error("expected the scene to be marked incomplete")
	}
	if len(s.Meshes) == 0 {
		t.Error("geometry should still be parsed")
	}
}

// writeGLTF writes a glTF file whose buffer holds a unit quad (4 positions)
// followed by 6 uint16 indices.
func writeGLTF(t *testing.T, dir, body string) string {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	for _, i := range []uint16{0, 1, 2, 0, 2, 3} {
		binary.Write(&buf, binary.LittleEndian, i)
	}
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "buffers": [{"byteLength": %d, "uri": %q}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 48},
    {"buffer": 0, "byteOffset": 48, "byteLength": 12}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 6, "type": "SCALAR"}
  ],
  %s
}`, buf.Len(), uri, body)

	path := filepath.Join(dir, "model.gltf")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseGLTF(t *testing.T) {
	path := writeGLTF(t, t.TempDir(), `
  "meshes": [
    {"name": "quad", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]},
    {"name": "fan", "primitives": [{"attributes": {"POSITION": 0}, "mode": 6}]},
    {"name": "points", "primitives": [{"attributes": {"POSITION": 0}, "mode": 0}]}
  ],
  "materials": [{"name": "mat", "pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}}],
  "textures": [{"source": 0}],
  "images": [{"uri": "tex%20a.png"}],
  "nodes": [
    {"name": "parent", "mesh": 0, "children": [1]},
    {"name": "child", "mesh": 1, "children": [2]},
    {"name": "dots", "mesh": 2}
  ],
  "scenes": [{"nodes": [0]}],
  "scene": 0`)

	s, err := ParseFile(path, Triangulate|FlipUVs)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if s.Incomplete {
		t.Error("scene unexpectedly incomplete")
	}
	if len(s.Meshes) != 2 {
		t.Fatalf("got %d meshes, want 2 (points skipped)", len(s.Meshes))
	}

	parent := s.Root.Children[0]
	if parent.Name != "parent" || len(parent.Meshes) != 1 || parent.Meshes[0] != 0 {
		t.Errorf("parent node = %+v", parent)
	}
	child := parent.Children[0]
	if child.Name != "child" || len(child.Meshes) != 1 || child.Meshes[0] != 1 {
		t.Errorf("child node = %+v", child)
	}
	if dots := child.Children[0]; len(dots.Meshes) != 0 {
		t.Errorf("points primitive should produce no mesh, got %v", dots.Meshes)
	}

	quad := s.Meshes[0]
	if quad.IndexCount() != 6 || len(quad.Positions) != 4 {
		t.Errorf("quad: %d indices, %d positions", quad.IndexCount(), len(quad.Positions))
	}
	if quad.HasTexCoords(0) {
		t.Error("quad has no TEXCOORD_0")
	}
	if p, ok := s.Materials[quad.MaterialIndex].Texture(TextureDiffuse, 0); !ok || p != "tex a.png" {
		t.Errorf("diffuse texture = %q, %v", p, ok)
	}

	fan := s.Meshes[1]
	if len(fan.Faces) != 2 || fan.MaterialIndex != -1 {
		t.Errorf("fan: %d faces, material %d", len(fan.Faces), fan.MaterialIndex)
	}
}

func TestParseGLTFCycleIsIncomplete(t *testing.T) {
	path := writeGLTF(t, t.TempDir(), `
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
  "nodes": [
    {"name": "a", "mesh": 0, "children": [1]},
    {"name": "b", "children": [0]}
  ],
  "scenes": [{"nodes": [0]}]`)

	s, err := ParseFile(path, Triangulate)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !s.Incomplete {
		t.Error("expected the cyclic scene to be marked incomplete")
	}
	if s.Root == nil || len(s.Root.Children) != 1 {
		t.Fatal("expected the reachable part of the tree")
	}
}

func TestParseGLTFWithoutNodes(t *testing.T) {
	path := writeGLTF(t, t.TempDir(), `
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}]`)

	s, err := ParseFile(path, Triangulate)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if s.Root != nil || !s.Incomplete {
		t.Errorf("root = %v, incomplete = %v; want nil root and incomplete", s.Root, s.Incomplete)
	}
}
