// Package texture decodes image files into GPU textures and deduplicates them
// by path.
package texture

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/braheezy/glmodel/internal/gpu"
)

var (
	// ErrNotFound is returned when a texture file cannot be opened.
	ErrNotFound = errors.New("texture not found")
	// ErrDecodeFailed is returned for corrupt or unsupported images.
	ErrDecodeFailed = errors.New("texture decode failed")
)

// Kind is the shading role of a texture.
type Kind string

const (
	Diffuse  Kind = "texture_diffuse"
	Specular Kind = "texture_specular"
	Normal   Kind = "texture_normal"
	Height   Kind = "texture_height"
)

// ParseKind accepts either the full kind or its short name ("diffuse").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "diffuse", string(Diffuse):
		return Diffuse, nil
	case "specular", string(Specular):
		return Specular, nil
	case "normal", string(Normal):
		return Normal, nil
	case "height", string(Height):
		return Height, nil
	}
	return "", fmt.Errorf("unknown texture kind %q", s)
}

// UniformName is the sampler uniform a shader must declare for the ordinal-th
// texture (1-based) of the given kind, e.g. "material.texture_diffuse1".
func UniformName(kind Kind, ordinal int) string {
	return "material." + string(kind) + strconv.Itoa(ordinal)
}

// Texture is a GPU texture together with the role it plays in one mesh.
type Texture struct {
	ID   gpu.TextureHandle
	Kind Kind
	Path string
}

// Valid reports whether the texture was uploaded.
func (t Texture) Valid() bool {
	return t.ID != gpu.InvalidTexture
}
