// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"

	"github.com/braheezy/glmodel/internal/gpu"
)

// Upload records one UploadTexture call.
type Upload struct {
	Handle gpu.TextureHandle
	Image  gpu.TextureImage
}

// MeshUpload records one CreateMesh call.
type MeshUpload struct {
	Buffers     gpu.MeshBuffers
	VertexBytes int
	Indices     []uint32
	Layout      gpu.VertexLayout
}

// Binding records one BindTexture call.
type Binding struct {
	Unit    uint32
	Texture gpu.TextureHandle
}

// Uniform records one SetUniformInt call.
type Uniform struct {
	Program uint32
	Name    string
	Value   int32
}

// Draw records one DrawIndexed call.
type Draw struct {
	Buffers gpu.MeshBuffers
	Count   int32
}

// Device records every call made to it. Handles are allocated sequentially
// starting at 1, so 0 is never handed out.
type Device struct {
	Uploads      []Upload
	Meshes       []MeshUpload
	Bindings     []Binding
	Uniforms     []Uniform
	Draws        []Draw
	DeletedMesh  []gpu.MeshBuffers
	DeletedTex   []gpu.TextureHandle
	ActiveUnit   uint32
	FailUploads  bool
	nextTexture  uint32
	nextObjectID uint32
}

// NewDevice returns an empty recorder.
func NewDevice() *Device {
	return &Device{}
}

func (d *Device) UploadTexture(img gpu.TextureImage) (gpu.TextureHandle, error) {
	if d.FailUploads {
		return gpu.InvalidTexture, fmt.Errorf("upload rejected")
	}
	d.nextTexture++
	h := gpu.TextureHandle(d.nextTexture)
	d.Uploads = append(d.Uploads, Upload{Handle: h, Image: img})
	return h, nil
}

func (d *Device) CreateMesh(vertices []byte, indices []uint32, layout gpu.VertexLayout) (gpu.MeshBuffers, error) {
	b := gpu.MeshBuffers{VAO: d.id(), VBO: d.id(), EBO: d.id()}
	d.Meshes = append(d.Meshes, MeshUpload{
		Buffers:     b,
		VertexBytes: len(vertices),
		Indices:     append([]uint32(nil), indices...),
		Layout:      layout,
	})
	return b, nil
}

func (d *Device) id() uint32 {
	d.nextObjectID++
	return d.nextObjectID
}

func (d *Device) BindTexture(unit uint32, tex gpu.TextureHandle) {
	d.ActiveUnit = unit
	d.Bindings = append(d.Bindings, Binding{Unit: unit, Texture: tex})
}

func (d *Device) ActiveTexture(unit uint32) {
	d.ActiveUnit = unit
}

func (d *Device) SetUniformInt(program uint32, name string, value int32) {
	d.Uniforms = append(d.Uniforms, Uniform{Program: program, Name: name, Value: value})
}

func (d *Device) DrawIndexed(buffers gpu.MeshBuffers, count int32) {
	d.Draws = append(d.Draws, Draw{Buffers: buffers, Count: count})
}

func (d *Device) DeleteMesh(buffers gpu.MeshBuffers) {
	d.DeletedMesh = append(d.DeletedMesh, buffers)
}

func (d *Device) DeleteTexture(tex gpu.TextureHandle) {
	d.DeletedTex = append(d.DeletedTex, tex)
}

// Reset clears the recorded draw state, keeping uploads.
func (d *Device) Reset() {
	d.Bindings = nil
	d.Uniforms = nil
	d.Draws = nil
}
