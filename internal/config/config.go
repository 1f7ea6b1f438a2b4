// Package config handles viewer configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/braheezy/glmodel/internal/scene"
	"github.com/braheezy/glmodel/internal/texture"
)

// Window backends.
const (
	BackendGLFW = "glfw"
	BackendSDL  = "sdl"
)

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Model   ModelConfig   `yaml:"model"`
	Shader  ShaderConfig  `yaml:"shader"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Backend string `yaml:"backend"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Title   string `yaml:"title"`
	VSync   bool   `yaml:"vsync"`
}

// ModelConfig controls what is imported and how.
type ModelConfig struct {
	Path             string `yaml:"path"`
	FlipTextures     bool   `yaml:"flip_textures"`
	StrictIncomplete bool   `yaml:"strict_incomplete"`
	PrefetchWorkers  int    `yaml:"prefetch_workers"`

	// ExtraTextureKinds are resolved after the diffuse and specular textures.
	ExtraTextureKinds []string `yaml:"extra_texture_kinds"`
}

// ShaderConfig points at GLSL sources on disk. Empty paths select the
// built-in shaders.
type ShaderConfig struct {
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the viewer's default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Backend: BackendGLFW,
			Width:   1280,
			Height:  720,
			Title:   "glmodel",
			VSync:   true,
		},
		Model: ModelConfig{
			Path:         "assets/backpack/backpack.obj",
			FlipTextures: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Window.Backend {
	case BackendGLFW, BackendSDL:
	default:
		errs = append(errs, fmt.Errorf("window.backend: unknown backend %q", c.Window.Backend))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: invalid size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model.path: required"))
	} else if ext := strings.ToLower(filepath.Ext(c.Model.Path)); !slices.Contains(scene.Extensions(), ext) {
		errs = append(errs, fmt.Errorf("model.path: unsupported format %q", ext))
	}
	if c.Model.PrefetchWorkers < 0 {
		errs = append(errs, fmt.Errorf("model.prefetch_workers: must not be negative, got %d", c.Model.PrefetchWorkers))
	}
	if _, err := c.Model.Kinds(); err != nil {
		errs = append(errs, fmt.Errorf("model.extra_texture_kinds: %w", err))
	}
	if (c.Shader.Vertex == "") != (c.Shader.Fragment == "") {
		errs = append(errs, errors.New("shader: vertex and fragment must be set together"))
	}
	return errors.Join(errs...)
}

// Kinds parses ExtraTextureKinds.
func (m ModelConfig) Kinds() ([]texture.Kind, error) {
	kinds := make([]texture.Kind, 0, len(m.ExtraTextureKinds))
	for _, s := range m.ExtraTextureKinds {
		k, err := texture.ParseKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
