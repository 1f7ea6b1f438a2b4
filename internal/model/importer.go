package model

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/braheezy/glmodel/internal/gpu"
	"github.com/braheezy/glmodel/internal/mesh"
	"github.com/braheezy/glmodel/internal/scene"
	"github.com/braheezy/glmodel/internal/texture"
)

var (
	// ErrParseFailed is returned when the model file yields no scene.
	ErrParseFailed = scene.ErrParseFailed
	// ErrIncomplete is returned when the scene has no root node, or when it
	// is flagged incomplete and the importer is strict.
	ErrIncomplete = errors.New("scene incomplete")
)

// DefaultTextureKinds are resolved for every material, in this order, ahead
// of any kinds added with WithTextureKinds.
var DefaultTextureKinds = []texture.Kind{texture.Diffuse, texture.Specular}

// Importer turns model files into Models. Textures are shared through its
// cache across every model it imports.
type Importer struct {
	device   gpu.Device
	cache    *texture.Cache
	parser   scene.Parser
	log      *zap.Logger
	kinds    []texture.Kind
	strict   bool
	prefetch int
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(imp *Importer) {
		if log != nil {
			imp.log = log
		}
	}
}

// WithParser replaces the extension-based scene parser.
func WithParser(p scene.Parser) Option {
	return func(imp *Importer) { imp.parser = p }
}

// WithStrictIncomplete makes a scene flagged incomplete a hard failure.
// By default such scenes are imported as far as they go and the problem is
// reported as a warning.
func WithStrictIncomplete(strict bool) Option {
	return func(imp *Importer) { imp.strict = strict }
}

// WithPrefetch decodes all texture images of a scene on up to workers
// goroutines before the meshes are built. Zero disables prefetching.
func WithPrefetch(workers int) Option {
	return func(imp *Importer) { imp.prefetch = workers }
}

// WithTextureKinds resolves additional material textures after the
// DefaultTextureKinds. Kinds already resolved are ignored, so the diffuse
// and specular textures always take the first units.
func WithTextureKinds(kinds ...texture.Kind) Option {
	return func(imp *Importer) {
		imp.kinds = withDefaultKinds(kinds)
	}
}

func withDefaultKinds(extra []texture.Kind) []texture.Kind {
	kinds := append([]texture.Kind(nil), DefaultTextureKinds...)
	for _, k := range extra {
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// NewImporter returns an importer uploading through device and loading
// textures through cache.
func NewImporter(device gpu.Device, cache *texture.Cache, opts ...Option) *Importer {
	imp := &Importer{
		device: device,
		cache:  cache,
		parser: scene.Default,
		log:    zap.NewNop(),
		kinds:  DefaultTextureKinds,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import parses the model at path with triangulation and flipped texture
// coordinates and uploads every mesh reachable from the scene root.
//
// Texture failures do not fail the import: the texture keeps its slot with
// gpu.InvalidTexture and the error is listed in Model.Warnings.
func (imp *Importer) Import(ctx context.Context, path string) (*Model, error) {
	start := time.Now()

	s, err := scene.ParseWith(imp.parser, path, scene.Triangulate|scene.FlipUVs)
	if err != nil {
		imp.log.Error("model parse failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	if s.Root == nil {
		return nil, fmt.Errorf("%w: %s: scene has no root node", ErrIncomplete, path)
	}

	m := &Model{directory: baseDir(path)}

	if s.Incomplete {
		if imp.strict {
			return nil, fmt.Errorf("%w: %s", ErrIncomplete, path)
		}
		imp.log.Warn("scene is incomplete, importing what was parsed", zap.String("path", path))
		m.warnings = append(m.warnings, fmt.Errorf("%w: %s", ErrIncomplete, path))
	}

	total := 0
	used := make(map[int]bool)
	if err := walk(s.Root, func(n *scene.Node) error {
		total += len(n.Meshes)
		for _, mi := range n.Meshes {
			if mi >= 0 && mi < len(s.Meshes) {
				used[s.Meshes[mi].MaterialIndex] = true
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParseFailed, path, err)
	}
	m.meshes = make([]*mesh.Mesh, 0, total)

	if imp.prefetch > 0 {
		paths := imp.texturePaths(s, m.directory, used)
		// images the build below did not upload must not stay decoded
		defer imp.cache.Discard(paths)
		if err := imp.cache.Prefetch(ctx, paths, imp.prefetch); err != nil {
			return nil, err
		}
	}

	err = walk(s.Root, func(n *scene.Node) error {
		for _, mi := range n.Meshes {
			if mi < 0 || mi >= len(s.Meshes) {
				return fmt.Errorf("%w: %s: node %q references mesh %d of %d", ErrParseFailed, path, n.Name, mi, len(s.Meshes))
			}
			msh, err := imp.processMesh(m, s, s.Meshes[mi])
			if err != nil {
				return fmt.Errorf("%s: mesh %d: %w", path, mi, err)
			}
			m.meshes = append(m.meshes, msh)
		}
		return nil
	})
	if err != nil {
		m.Release()
		return nil, err
	}

	imp.log.Info("model imported",
		zap.String("path", path),
		zap.Int("meshes", len(m.meshes)),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("indices", m.IndexCount()),
		zap.Int("cached_textures", imp.cache.Len()),
		zap.Int("warnings", len(m.warnings)),
		zap.Duration("took", time.Since(start)),
	)
	return m, nil
}

// walk visits the tree in pre-order: a node before its children, children
// left to right. It uses an explicit stack so deep trees cannot exhaust the
// goroutine stack, and rejects graphs that revisit a node.
func walk(root *scene.Node, visit func(*scene.Node) error) error {
	seen := make(map[*scene.Node]bool)
	stack := []*scene.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if seen[n] {
			return fmt.Errorf("node %q is reachable more than once", n.Name)
		}
		seen[n] = true

		if err := visit(n); err != nil {
			return err
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return nil
}

func (imp *Importer) processMesh(m *Model, s *scene.Scene, sm *scene.Mesh) (*mesh.Mesh, error) {
	hasUV := sm.HasTexCoords(0)
	vertices := make([]mesh.Vertex, len(sm.Positions))
	for i, p := range sm.Positions {
		vertices[i].Position = p
		if i < len(sm.Normals) {
			vertices[i].Normal = sm.Normals[i]
		}
		if hasUV {
			vertices[i].TexCoords = sm.TexCoords[0][i]
		} else {
			vertices[i].TexCoords = mgl32.Vec2{0, 0}
		}
	}

	// meshes are drawn as GL_TRIANGLES; points and lines left by a parser
	// would shift every following triangle
	indices := make([]uint32, 0, sm.IndexCount())
	for _, f := range sm.Faces {
		if len(f.Indices) == 3 {
			indices = append(indices, f.Indices...)
		}
	}

	return mesh.New(imp.device, vertices, indices, imp.meshTextures(m, s, sm))
}

// meshTextures resolves the textures of the mesh's material, kind by kind.
func (imp *Importer) meshTextures(m *Model, s *scene.Scene, sm *scene.Mesh) []texture.Texture {
	if sm.MaterialIndex < 0 || sm.MaterialIndex >= len(s.Materials) {
		return nil
	}
	mat := s.Materials[sm.MaterialIndex]

	var textures []texture.Texture
	for _, kind := range imp.kinds {
		tt := textureType(kind)
		for i := 0; i < mat.TextureCount(tt); i++ {
			p, _ := mat.Texture(tt, i)
			tex, err := imp.cache.LookupOrLoad(resolveTexturePath(m.directory, p), kind)
			if err != nil {
				imp.log.Warn("texture unavailable",
					zap.String("material", mat.Name),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
				m.warnings = append(m.warnings, err)
			}
			textures = append(textures, tex)
		}
	}
	return textures
}

// texturePaths lists the texture files of the materials in used.
func (imp *Importer) texturePaths(s *scene.Scene, dir string, used map[int]bool) []string {
	var paths []string
	for i, mat := range s.Materials {
		if !used[i] {
			continue
		}
		for _, kind := range imp.kinds {
			tt := textureType(kind)
			for i := 0; i < mat.TextureCount(tt); i++ {
				p, _ := mat.Texture(tt, i)
				paths = append(paths, resolveTexturePath(dir, p))
			}
		}
	}
	return paths
}

func textureType(kind texture.Kind) scene.TextureType {
	switch kind {
	case texture.Diffuse:
		return scene.TextureDiffuse
	case texture.Specular:
		return scene.TextureSpecular
	case texture.Normal:
		return scene.TextureNormal
	case texture.Height:
		return scene.TextureHeight
	}
	return 0
}

// baseDir truncates path at its last separator. A path without one has an
// empty base directory.
func baseDir(path string) string {
	i := strings.LastIndexAny(path, "/"+string(filepath.Separator))
	switch {
	case i < 0:
		return ""
	case i == 0:
		return path[:1]
	}
	return path[:i]
}

// resolveTexturePath joins a texture path from a model file with the model's
// directory. Backslash separators written by Windows exporters are accepted.
func resolveTexturePath(dir, p string) string {
	p = filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
