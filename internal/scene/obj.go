package scene

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/udhos/gwob"
)

// ParseOBJ reads a Wavefront OBJ file and its MTL library. The root node has
// one child per OBJ group, each referencing one mesh. A referenced material
// library that cannot be read marks the scene incomplete.
func ParseOBJ(path string) (*Scene, error) {
	options := &gwob.ObjParserOptions{}
	obj, err := gwob.NewObjFromFile(path, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParseFailed, path, err)
	}

	s := &Scene{Root: &Node{Name: filepath.Base(path)}}

	// Material 0 is the default material for groups without usemtl.
	s.Materials = append(s.Materials, NewMaterial("default"))
	materialIndex := map[string]int{}

	if obj.Mtllib != "" {
		mtlPath := filepath.Join(filepath.Dir(path), obj.Mtllib)
		lib, err := gwob.ReadMaterialLibFromFile(mtlPath, options)
		if err != nil {
			s.Incomplete = true
		} else {
			for name, mtl := range lib.Lib {
				mat := NewMaterial(name)
				mat.AddTexture(TextureDiffuse, mtl.MapKd)
				mat.AddTexture(TextureSpecular, mtl.MapKs)
				mat.AddTexture(TextureHeight, mtl.Bump)
				materialIndex[name] = len(s.Materials)
				s.Materials = append(s.Materials, mat)
			}
		}
	}

	for _, group := range obj.Groups {
		if group.IndexCount == 0 {
			continue
		}
		m := objGroupMesh(obj, group)
		if idx, ok := materialIndex[group.Usemtl]; ok {
			m.MaterialIndex = idx
		}
		s.Root.Children = append(s.Root.Children, &Node{
			Name:   group.Name,
			Meshes: []int{len(s.Meshes)},
		})
		s.Meshes = append(s.Meshes, m)
	}

	if len(s.Meshes) == 0 {
		s.Incomplete = true
	}
	return s, nil
}

// objGroupMesh copies the vertices a group references into a mesh of its
// own, remapping the shared OBJ indices to local ones.
func objGroupMesh(obj *gwob.Obj, group *gwob.Group) *Mesh {
	m := &Mesh{Name: group.Name}
	var uvs []mgl32.Vec2

	stride := obj.StrideSize / 4
	posOffset := obj.StrideOffsetPosition / 4
	texOffset := obj.StrideOffsetTexture / 4
	normOffset := obj.StrideOffsetNormal / 4

	local := make(map[int]uint32)
	indices := make([]uint32, 0, group.IndexCount)
	for i := group.IndexBegin; i < group.IndexBegin+group.IndexCount; i++ {
		index := obj.Indices[i]
		if li, ok := local[index]; ok {
			indices = append(indices, li)
			continue
		}

		base := index * stride
		var position, normal mgl32.Vec3
		var uv mgl32.Vec2
		if p := base + posOffset; p+2 < len(obj.Coord) {
			position = mgl32.Vec3{obj.Coord[p], obj.Coord[p+1], obj.Coord[p+2]}
		}
		if obj.NormCoordFound {
			if n := base + normOffset; n+2 < len(obj.Coord) {
				normal = mgl32.Vec3{obj.Coord[n], obj.Coord[n+1], obj.Coord[n+2]}
			}
		}
		if obj.TextCoordFound {
			if t := base + texOffset; t+1 < len(obj.Coord) {
				uv = mgl32.Vec2{obj.Coord[t], obj.Coord[t+1]}
			}
		}

		li := uint32(len(m.Positions))
		local[index] = li
		m.Positions = append(m.Positions, position)
		if obj.NormCoordFound {
			m.Normals = append(m.Normals, normal)
		}
		if obj.TextCoordFound {
			uvs = append(uvs, uv)
		}
		indices = append(indices, li)
	}

	if obj.TextCoordFound {
		m.TexCoords = [][]mgl32.Vec2{uvs}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		m.Faces = append(m.Faces, Face{Indices: indices[i : i+3 : i+3]})
	}
	return m
}
