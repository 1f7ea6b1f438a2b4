package model

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/braheezy/glmodel/internal/gpu"
	"github.com/braheezy/glmodel/internal/gpu/gputest"
	"github.com/braheezy/glmodel/internal/mesh"
	"github.com/braheezy/glmodel/internal/scene"
	"github.com/braheezy/glmodel/internal/texture"
)

// triangles returns a scene mesh of n separate triangles using material mat.
func triangles(n, mat int) *scene.Mesh {
	m := &scene.Mesh{MaterialIndex: mat}
	for i := 0; i < n; i++ {
		base := uint32(len(m.Positions))
		m.Positions = append(m.Positions, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
		m.Normals = append(m.Normals, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, 1})
		m.Faces = append(m.Faces, scene.Face{Indices: []uint32{base, base + 1, base + 2}})
	}
	return m
}

func withUVs(m *scene.Mesh) *scene.Mesh {
	uvs := make([]mgl32.Vec2, len(m.Positions))
	for i := range uvs {
		uvs[i] = mgl32.Vec2{0.5, 0.25}
	}
	m.TexCoords = [][]mgl32.Vec2{uvs}
	return m
}

func fixedScene(s *scene.Scene) scene.Parser {
	return scene.ParserFunc(func(string) (*scene.Scene, error) { return s, nil })
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func newImporter(device gpu.Device, opts ...Option) *Importer {
	cache := texture.NewCache(texture.NewLoader(device, true), nil)
	return NewImporter(device, cache, opts...)
}

func TestImportPreOrderAndCounts(t *testing.T) {
	// mesh i has i+1 triangles, so it can be recognised by its index count
	s := &scene.Scene{
		Meshes: []*scene.Mesh{triangles(1, -1), triangles(2, -1), triangles(3, -1), triangles(4, -1)},
		Root: &scene.Node{
			Name:   "root",
			Meshes: []int{2},
			Children: []*scene.Node{
				{Name: "a", Meshes: []int{0}, Children: []*scene.Node{{Name: "c", Meshes: []int{3}}}},
				{Name: "b", Meshes: []int{1, 1}},
			},
		},
	}

	device := gputest.NewDevice()
	m, err := newImporter(device, WithParser(fixedScene(s))).Import(context.Background(), "models/thing.obj")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	wantOrder := []int{2, 0, 3, 1, 1}
	if len(m.Meshes()) != len(wantOrder) {
		t.Fatalf("got %d meshes, want %d", len(m.Meshes()), len(wantOrder))
	}
	wantIndices := 0
	for i, mi := range wantOrder {
		want := s.Meshes[mi].IndexCount()
		wantIndices += want
		if got := m.Meshes()[i].IndexCount(); got != want {
			t.Errorf("mesh %d has %d indices, want %d (scene mesh %d)", i, got, want, mi)
		}
	}
	if m.IndexCount() != wantIndices {
		t.Errorf("IndexCount() = %d, want %d", m.IndexCount(), wantIndices)
	}
	if m.Directory() != "models" {
		t.Errorf("Directory() = %q, want models", m.Directory())
	}
	if len(device.Meshes) != len(wantOrder) {
		t.Errorf("uploaded %d meshes, want %d", len(device.Meshes), len(wantOrder))
	}
}

func TestImportSharedTextureUploadedOnce(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "shared.png"))

	mat := scene.NewMaterial("shared")
	mat.AddTexture(scene.TextureDiffuse, "shared.png")
	s := &scene.Scene{
		Meshes:    []*scene.Mesh{withUVs(triangles(1, 0)), withUVs(triangles(1, 0))},
		Materials: []*scene.Material{mat},
		Root:      &scene.Node{Meshes: []int{0, 1}},
	}

	for _, workers := range []int{0, 2} {
		device := gputest.NewDevice()
		m, err := newImporter(device, WithParser(fixedScene(s)), WithPrefetch(workers)).
			Import(context.Background(), filepath.Join(dir, "model.obj"))
		if err != nil {
			t.Fatalf("workers=%d: Import: %v", workers, err)
		}

		if len(device.Uploads) != 1 {
			t.Errorf("workers=%d: expected 1 texture upload, got %d", workers, len(device.Uploads))
		}
		a, b := m.Meshes()[0].Textures(), m.Meshes()[1].Textures()
		if len(a) != 1 || len(b) != 1 {
			t.Fatalf("workers=%d: textures per mesh = %d, %d", workers, len(a), len(b))
		}
		if a[0].ID != b[0].ID || !a[0].Valid() {
			t.Errorf("workers=%d: handles = %d, %d; want the same valid handle", workers, a[0].ID, b[0].ID)
		}
		if len(m.Warnings()) != 0 {
			t.Errorf("workers=%d: unexpected warnings %v", workers, m.Warnings())
		}
	}
}

func TestImportUniformNamesAndUnits(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"d1.png", "d2.png", "s1.png"} {
		writePNG(t, filepath.Join(dir, name))
	}

	mat := scene.NewMaterial("mixed")
	mat.AddTexture(scene.TextureSpecular, "s1.png")
	mat.AddTexture(scene.TextureDiffuse, "d1.png")
	mat.AddTexture(scene.TextureDiffuse, "d2.png")
	s := &scene.Scene{
		Meshes:    []*scene.Mesh{triangles(1, 0)},
		Materials: []*scene.Material{mat},
		Root:      &scene.Node{Meshes: []int{0}},
	}

	device := gputest.NewDevice()
	m, err := newImporter(device, WithParser(fixedScene(s))).Import(context.Background(), filepath.Join(dir, "m.obj"))
	if err != nil {
		t.Fatal(err)
	}

	m.Draw(3)

	want := []gputest.Uniform{
		{Program: 3, Name: "material.texture_diffuse1", Value: 0},
		{Program: 3, Name: "material.texture_diffuse2", Value: 1},
		{Program: 3, Name: "material.texture_specular1", Value: 2},
	}
	if len(device.Uniforms) != len(want) {
		t.Fatalf("got %d uniforms, want %d", len(device.Uniforms), len(want))
	}
	for i := range want {
		if device.Uniforms[i] != want[i] {
			t.Errorf("uniform %d = %+v, want %+v", i, device.Uniforms[i], want[i])
		}
	}
	if device.ActiveUnit != 0 {
		t.Errorf("active unit = %d, want 0", device.ActiveUnit)
	}
}

func TestImportWithoutUVs(t *testing.T) {
	s := &scene.Scene{
		Meshes: []*scene.Mesh{triangles(2, -1)},
		Root:   &scene.Node{Meshes: []int{0}},
	}

	m, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(s))).Import(context.Background(), "x.obj")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range m.Meshes()[0].Vertices() {
		if v.TexCoords != (mgl32.Vec2{0, 0}) {
			t.Errorf("vertex %d tex coords = %v, want (0,0)", i, v.TexCoords)
		}
		if v.Normal != (mgl32.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d normal = %v", i, v.Normal)
		}
	}
}

func TestImportFlipsUVs(t *testing.T) {
	s := &scene.Scene{
		Meshes: []*scene.Mesh{withUVs(triangles(1, -1))},
		Root:   &scene.Node{Meshes: []int{0}},
	}

	m, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(s))).Import(context.Background(), "x.obj")
	if err != nil {
		t.Fatal(err)
	}
	if uv := m.Meshes()[0].Vertices()[0].TexCoords; uv != (mgl32.Vec2{0.5, 0.75}) {
		t.Errorf("tex coords = %v, want (0.5, 0.75)", uv)
	}
}

func TestImportMissingTextureIsWarning(t *testing.T) {
	mat := scene.NewMaterial("broken")
	mat.AddTexture(scene.TextureDiffuse, "missing.png")
	s := &scene.Scene{
		Meshes:    []*scene.Mesh{triangles(1, 0)},
		Materials: []*scene.Material{mat},
		Root:      &scene.Node{Meshes: []int{0}},
	}

	device := gputest.NewDevice()
	m, err := newImporter(device, WithParser(fixedScene(s))).Import(context.Background(), filepath.Join(t.TempDir(), "m.obj"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if len(m.Warnings()) != 1 || !errors.Is(m.Warnings()[0], texture.ErrNotFound) {
		t.Errorf("warnings = %v, want one ErrNotFound", m.Warnings())
	}
	textures := m.Meshes()[0].Textures()
	if len(textures) != 1 || textures[0].ID != gpu.InvalidTexture {
		t.Errorf("textures = %+v, want one invalid slot", textures)
	}

	m.Draw(1)
	if len(device.Draws) != 1 {
		t.Error("mesh with a missing texture must still be drawn")
	}
}

func TestImportParseFailed(t *testing.T) {
	tests := []struct {
		name   string
		parser scene.Parser
	}{
		{"parser error", scene.ParserFunc(func(path string) (*scene.Scene, error) {
			return nil, scene.ErrParseFailed
		})},
		{"no scene", scene.ParserFunc(func(string) (*scene.Scene, error) { return nil, nil })},
		{"default parser, unknown format", scene.Default},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newImporter(gputest.NewDevice(), WithParser(tt.parser)).Import(context.Background(), "model.xyz")
			if !errors.Is(err, ErrParseFailed) {
				t.Errorf("expected ErrParseFailed, got %v", err)
			}
			if m != nil {
				t.Error("expected no model")
			}
		})
	}
}

func TestImportIncomplete(t *testing.T) {
	incomplete := &scene.Scene{
		Meshes:     []*scene.Mesh{triangles(1, -1)},
		Root:       &scene.Node{Meshes: []int{0}},
		Incomplete: true,
	}

	t.Run("missing root", func(t *testing.T) {
		_, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(&scene.Scene{}))).Import(context.Background(), "m.obj")
		if !errors.Is(err, ErrIncomplete) {
			t.Errorf("expected ErrIncomplete, got %v", err)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		m, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(incomplete))).Import(context.Background(), "m.obj")
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if len(m.Meshes()) != 1 {
			t.Errorf("got %d meshes, want 1", len(m.Meshes()))
		}
		if len(m.Warnings()) != 1 || !errors.Is(m.Warnings()[0], ErrIncomplete) {
			t.Errorf("warnings = %v", m.Warnings())
		}
	})

	t.Run("strict", func(t *testing.T) {
		device := gputest.NewDevice()
		m, err := newImporter(device, WithParser(fixedScene(incomplete)), WithStrictIncomplete(true)).
			Import(context.Background(), "m.obj")
		if !errors.Is(err, ErrIncomplete) || m != nil {
			t.Errorf("got %v, %v; want ErrIncomplete and no model", m, err)
		}
		if len(device.Meshes) != 0 {
			t.Error("nothing should be uploaded")
		}
	})
}

func TestImportInvalidSceneReleasesMeshes(t *testing.T) {
	tests := []struct {
		name    string
		scene   *scene.Scene
		wantErr error
	}{
		{
			name: "dangling mesh reference",
			scene: &scene.Scene{
				Meshes: []*scene.Mesh{triangles(1, -1)},
				Root:   &scene.Node{Meshes: []int{0}, Children: []*scene.Node{{Name: "bad", Meshes: []int{5}}}},
			},
			wantErr: ErrParseFailed,
		},
		{
			name: "face index out of range",
			scene: &scene.Scene{
				Meshes: []*scene.Mesh{triangles(1, -1), {
					Positions: []mgl32.Vec3{{}, {}, {}},
					Faces:     []scene.Face{{Indices: []uint32{0, 1, 3}}},
				}},
				Root: &scene.Node{Meshes: []int{0, 1}},
			},
			wantErr: mesh.ErrIndexOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := gputest.NewDevice()
			m, err := newImporter(device, WithParser(fixedScene(tt.scene))).Import(context.Background(), "m.obj")
			if !errors.Is(err, tt.wantErr) || m != nil {
				t.Fatalf("got %v, %v; want %v", m, err, tt.wantErr)
			}
			if len(device.DeletedMesh) != len(device.Meshes) {
				t.Errorf("uploaded %d meshes but released %d", len(device.Meshes), len(device.DeletedMesh))
			}
		})
	}
}

func TestImportRejectsSharedNodes(t *testing.T) {
	shared := &scene.Node{Name: "shared", Meshes: []int{0}}
	s := &scene.Scene{
		Meshes: []*scene.Mesh{triangles(1, -1)},
		Root:   &scene.Node{Children: []*scene.Node{shared, shared}},
	}

	_, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(s))).Import(context.Background(), "m.obj")
	if !errors.Is(err, ErrParseFailed) {
		t.Errorf("expected ErrParseFailed, got %v", err)
	}
}

func TestImportExtraTextureKinds(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "d.png"))
	writePNG(t, filepath.Join(dir, "h.png"))

	mat := scene.NewMaterial("bumpy")
	mat.AddTexture(scene.TextureHeight, "h.png")
	mat.AddTexture(scene.TextureDiffuse, "d.png")
	s := &scene.Scene{
		Meshes:    []*scene.Mesh{triangles(1, 0)},
		Materials: []*scene.Material{mat},
		Root:      &scene.Node{Meshes: []int{0}},
	}

	m, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(s)),
		WithTextureKinds(texture.Diffuse, texture.Specular, texture.Height)).
		Import(context.Background(), filepath.Join(dir, "m.obj"))
	if err != nil {
		t.Fatal(err)
	}

	textures := m.Meshes()[0].Textures()
	if len(textures) != 2 || textures[0].Kind != texture.Diffuse || textures[1].Kind != texture.Height {
		t.Errorf("textures = %+v", textures)
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
usemtl brick
f 1/1/1 2/2/1 3/3/1 4/4/1
`

const testMTL = `newmtl brick
Kd 1 1 1
map_Kd textures\brick.png
map_Ks textures/missing_spec.png
`

func TestImportOBJFromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "textures"), 0755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(dir, "textures", "brick.png"))
	if err := os.WriteFile(filepath.Join(dir, "scene.obj"), []byte(testOBJ), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte(testMTL), 0644); err != nil {
		t.Fatal(err)
	}

	device := gputest.NewDevice()
	m, err := newImporter(device).Import(context.Background(), filepath.Join(dir, "scene.obj"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if m.IndexCount() != 9 {
		t.Errorf("IndexCount() = %d, want 9", m.IndexCount())
	}
	if len(device.Uploads) != 1 {
		t.Errorf("expected one texture upload for brick.png, got %d", len(device.Uploads))
	}
	for _, w := range m.Warnings() {
		if !errors.Is(w, texture.ErrNotFound) {
			t.Errorf("unexpected warning %v", w)
		}
	}
	if len(m.Warnings()) == 0 {
		t.Error("expected a warning for the missing specular map")
	}

	m.Release()
	if len(device.DeletedMesh) != len(m.Meshes()) {
		t.Errorf("released %d of %d meshes", len(device.DeletedMesh), len(m.Meshes()))
	}
}

func TestBaseDir(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"assets/backpack/backpack.obj", "assets/backpack"},
		{"backpack.obj", ""},
		{"/model.obj", "/"},
		{"./a/b.gltf", "./a"},
	}

	for _, tt := range tests {
		if got := baseDir(tt.path); got != tt.want {
			t.Errorf("baseDir(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResolveTexturePath(t *testing.T) {
	tests := []struct {
		dir, path, want string
	}{
		{"models", "wall.png", filepath.Join("models", "wall.png")},
		{"models", `tex\wall.png`, filepath.Join("models", "tex", "wall.png")},
		{"", "wall.png", "wall.png"},
	}

	for _, tt := range tests {
		if got := resolveTexturePath(tt.dir, tt.path); got != tt.want {
			t.Errorf("resolveTexturePath(%q, %q) = %q, want %q", tt.dir, tt.path, got, tt.want)
		}
	}
}

func TestImportTextureKindOrderIsFixed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"d.png", "s.png", "n.png"} {
		writePNG(t, filepath.Join(dir, name))
	}

	mat := scene.NewMaterial("full")
	mat.AddTexture(scene.TextureNormal, "n.png")
	mat.AddTexture(scene.TextureSpecular, "s.png")
	mat.AddTexture(scene.TextureDiffuse, "d.png")
	s := &scene.Scene{
		Meshes:    []*scene.Mesh{triangles(1, 0)},
		Materials: []*scene.Material{mat},
		Root:      &scene.Node{Meshes: []int{0}},
	}

	tests := []struct {
		name  string
		extra []texture.Kind
		want  []texture.Kind
	}{
		{"defaults", nil, []texture.Kind{texture.Diffuse, texture.Specular}},
		{"reordered defaults", []texture.Kind{texture.Specular, texture.Diffuse}, []texture.Kind{texture.Diffuse, texture.Specular}},
		{"extra kind", []texture.Kind{texture.Diffuse, texture.Normal}, []texture.Kind{texture.Diffuse, texture.Specular, texture.Normal}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(s)), WithTextureKinds(tt.extra...)).
				Import(context.Background(), filepath.Join(dir, "m.obj"))
			if err != nil {
				t.Fatal(err)
			}

			textures := m.Meshes()[0].Textures()
			if len(textures) != len(tt.want) {
				t.Fatalf("textures = %+v, want kinds %v", textures, tt.want)
			}
			for i, kind := range tt.want {
				if textures[i].Kind != kind {
					t.Errorf("unit %d kind = %s, want %s", i, textures[i].Kind, kind)
				}
			}
		})
	}
}

func TestImportPrefetchKeepsNoDecodedImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "used.png"))
	writePNG(t, filepath.Join(dir, "unused.png"))

	used := scene.NewMaterial("used")
	used.AddTexture(scene.TextureDiffuse, "used.png")
	unused := scene.NewMaterial("unused")
	unused.AddTexture(scene.TextureDiffuse, "unused.png")

	tests := []struct {
		name    string
		root    *scene.Node
		wantErr bool
	}{
		{"unused material", &scene.Node{Meshes: []int{0}}, false},
		{"failed import", &scene.Node{Meshes: []int{0}, Children: []*scene.Node{{Name: "bad", Meshes: []int{7}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &scene.Scene{
				Meshes:    []*scene.Mesh{triangles(1, 0)},
				Materials: []*scene.Material{used, unused},
				Root:      tt.root,
			}
			device := gputest.NewDevice()
			cache := texture.NewCache(texture.NewLoader(device, true), nil)
			imp := NewImporter(device, cache, WithParser(fixedScene(s)), WithPrefetch(2))

			_, err := imp.Import(context.Background(), filepath.Join(dir, "m.obj"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Import error = %v, want error %v", err, tt.wantErr)
			}
			if n := cache.Pending(); n != 0 {
				t.Errorf("%d decoded images left in the cache", n)
			}
			for _, p := range cache.Paths() {
				if filepath.Base(p) == "unused.png" {
					t.Error("texture of an unused material was uploaded")
				}
			}
		})
	}
}

func TestImportSkipsNonTriangleFaces(t *testing.T) {
	sm := triangles(2, -1)
	sm.Faces = append([]scene.Face{{Indices: []uint32{0, 1}}, {Indices: []uint32{2}}}, sm.Faces...)
	s := &scene.Scene{
		Meshes: []*scene.Mesh{sm},
		Root:   &scene.Node{Meshes: []int{0}},
	}

	m, err := newImporter(gputest.NewDevice(), WithParser(fixedScene(s))).Import(context.Background(), "m.obj")
	if err != nil {
		t.Fatal(err)
	}

	want := []uint32{0, 1, 2, 3, 4, 5}
	got := m.Meshes()[0].Indices()
	if len(got) != len(want) {
		t.Fatalf("indices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("indices = %v, want %v", got, want)
			break
		}
	}
}
