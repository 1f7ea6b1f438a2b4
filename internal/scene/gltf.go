package scene

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ParseGLTF reads a glTF 2.0 file (.gltf or .glb). Every triangle primitive
// becomes one scene mesh; point and line primitives are skipped. The base
// colour texture of a material is reported as its diffuse texture when it
// refers to an external image file.
//
// Missing or cyclic node references and unreadable primitives mark the scene
// incomplete instead of failing it.
func ParseGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParseFailed, path, err)
	}

	s := &Scene{}
	for _, mat := range doc.Materials {
		m := NewMaterial(mat.Name)
		if pbr := mat.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
			if p, ok := gltfImagePath(doc, int(pbr.BaseColorTexture.Index)); ok {
				m.AddTexture(TextureDiffuse, p)
			}
		}
		s.Materials = append(s.Materials, m)
	}

	// scene meshes produced by each glTF mesh
	meshes := make([][]int, len(doc.Meshes))
	for i, gm := range doc.Meshes {
		for _, prim := range gm.Primitives {
			m, ok, err := gltfPrimitive(doc, prim)
			if err != nil {
				s.Incomplete = true
				continue
			}
			if !ok {
				continue
			}
			m.Name = gm.Name
			meshes[i] = append(meshes[i], len(s.Meshes))
			s.Meshes = append(s.Meshes, m)
		}
	}

	roots := gltfRoots(doc)
	if len(roots) == 0 {
		s.Incomplete = true
		return s, nil
	}

	s.Root = &Node{Name: filepath.Base(path)}

	type item struct {
		index  int
		parent *Node
	}
	visited := make([]bool, len(doc.Nodes))
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{roots[i], s.Root})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.index < 0 || it.index >= len(doc.Nodes) || visited[it.index] {
			s.Incomplete = true
			continue
		}
		visited[it.index] = true

		gn := doc.Nodes[it.index]
		node := &Node{Name: gn.Name}
		if gn.Mesh != nil {
			if mi := int(*gn.Mesh); mi < len(meshes) {
				node.Meshes = append(node.Meshes, meshes[mi]...)
			} else {
				s.Incomplete = true
			}
		}
		it.parent.Children = append(it.parent.Children, node)

		for i := len(gn.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{int(gn.Children[i]), node})
		}
	}

	return s, nil
}

// gltfRoots returns the root nodes of the default scene, falling back to the
// first scene and then to every node that is nobody's child.
func gltfRoots(doc *gltf.Document) []int {
	var roots []int
	switch {
	case doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes):
		for _, n := range doc.Scenes[int(*doc.Scene)].Nodes {
			roots = append(roots, int(n))
		}
	case len(doc.Scenes) > 0:
		for _, n := range doc.Scenes[0].Nodes {
			roots = append(roots, int(n))
		}
	default:
		isChild := make([]bool, len(doc.Nodes))
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				if int(c) < len(isChild) {
					isChild[int(c)] = true
				}
			}
		}
		for i := range doc.Nodes {
			if !isChild[i] {
				roots = append(roots, i)
			}
		}
	}
	return roots
}

func gltfImagePath(doc *gltf.Document, textureIndex int) (string, bool) {
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return "", false
	}
	src := doc.Textures[textureIndex].Source
	if src == nil || int(*src) >= len(doc.Images) {
		return "", false
	}
	uri := doc.Images[int(*src)].URI
	if uri == "" || strings.HasPrefix(uri, "data:") {
		return "", false
	}
	if p, err := url.PathUnescape(uri); err == nil {
		return p, true
	}
	return uri, true
}

// gltfPrimitive converts a triangle primitive. It reports false for
// primitives that do not describe triangles.
func gltfPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*Mesh, bool, error) {
	switch prim.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return nil, false, nil
	}

	accessor := func(name string) (*gltf.Accessor, bool) {
		idx, ok := prim.Attributes[name]
		if !ok || int(idx) >= len(doc.Accessors) {
			return nil, false
		}
		return doc.Accessors[int(idx)], true
	}

	posAcr, ok := accessor(gltf.POSITION)
	if !ok {
		return nil, false, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, posAcr, nil)
	if err != nil {
		return nil, false, fmt.Errorf("read positions: %w", err)
	}

	m := &Mesh{MaterialIndex: -1}
	if prim.Material != nil {
		m.MaterialIndex = int(*prim.Material)
	}
	m.Positions = make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		m.Positions[i] = mgl32.Vec3(p)
	}

	if acr, ok := accessor(gltf.NORMAL); ok {
		normals, err := modeler.ReadNormal(doc, acr, nil)
		if err != nil {
			return nil, false, fmt.Errorf("read normals: %w", err)
		}
		if len(normals) == len(positions) {
			m.Normals = make([]mgl32.Vec3, len(normals))
			for i, n := range normals {
				m.Normals[i] = mgl32.Vec3(n)
			}
		}
	}

	if acr, ok := accessor(gltf.TEXCOORD_0); ok {
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return nil, false, fmt.Errorf("read texture coordinates: %w", err)
		}
		channel := make([]mgl32.Vec2, len(uvs))
		for i, uv := range uvs {
			channel[i] = mgl32.Vec2(uv)
		}
		m.TexCoords = [][]mgl32.Vec2{channel}
	}

	var indices []uint32
	if prim.Indices != nil {
		if int(*prim.Indices) >= len(doc.Accessors) {
			return nil, false, fmt.Errorf("index accessor %d out of range", int(*prim.Indices))
		}
		indices, err = modeler.ReadIndices(doc, doc.Accessors[int(*prim.Indices)], nil)
		if err != nil {
			return nil, false, fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	m.Faces = gltfFaces(prim.Mode, indices)
	return m, true, nil
}

func gltfFaces(mode gltf.PrimitiveMode, indices []uint32) []Face {
	var faces []Face
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				faces = append(faces, Face{Indices: []uint32{indices[i], indices[i+1], indices[i+2]}})
			} else {
				faces = append(faces, Face{Indices: []uint32{indices[i+1], indices[i], indices[i+2]}})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			faces = append(faces, Face{Indices: []uint32{indices[0], indices[i], indices[i+1]}})
		}
	default:
		for i := 0; i+2 < len(indices); i += 3 {
			faces = append(faces, Face{Indices: indices[i : i+3 : i+3]})
		}
	}
	return faces
}
