// Package window creates the OpenGL context and collects per-frame input,
// backed by either GLFW or SDL2.
package window

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

func init() {
	// GL calls and window events must stay on the main thread.
	runtime.LockOSThread()
}

// Config holds window configuration.
type Config struct {
	Backend string
	Title   string
	Width   int
	Height  int
	VSync   bool
}

// Key is a viewer action bound to a physical key.
type Key int

const (
	KeyForward Key = iota
	KeyBackward
	KeyLeft
	KeyRight
	KeyQuit
	numKeys
)

// Input is the state gathered by one PollInput call.
type Input struct {
	Held [numKeys]bool
	// Mouse movement since the previous poll; positive DY looks up.
	MouseDX, MouseDY float32
	Scroll           float32
}

// Window is an OpenGL-capable window.
type Window interface {
	ShouldClose() bool
	SetShouldClose(bool)
	PollInput() Input
	SwapBuffers()
	// FramebufferSize is the drawable size in pixels.
	FramebufferSize() (width, height int)
	// Time returns seconds since the window was created.
	Time() float64
	Close()
}

// New creates a window with an OpenGL 4.1 core context made current on the
// calling thread.
func New(cfg Config, log *zap.Logger) (Window, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		w   Window
		err error
	)
	switch cfg.Backend {
	case "glfw", "":
		w, err = newGLFW(cfg)
	case "sdl":
		w, err = newSDL(cfg)
	default:
		return nil, fmt.Errorf("unknown window backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	log.Info("window created",
		zap.String("backend", cfg.Backend),
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("vsync", cfg.VSync),
	)
	return w, nil
}

// mouseTracker turns absolute cursor positions into deltas. The first
// position only seeds the tracker so the camera does not jump.
type mouseTracker struct {
	seeded       bool
	lastX, lastY float64
	dx, dy       float64
}

func (m *mouseTracker) move(x, y float64) {
	if !m.seeded {
		m.lastX, m.lastY = x, y
		m.seeded = true
	}
	m.dx += x - m.lastX
	// window y grows downward
	m.dy += m.lastY - y
	m.lastX, m.lastY = x, y
}

// take returns and clears the accumulated delta.
func (m *mouseTracker) take() (float32, float32) {
	dx, dy := float32(m.dx), float32(m.dy)
	m.dx, m.dy = 0, 0
	return dx, dy
}
