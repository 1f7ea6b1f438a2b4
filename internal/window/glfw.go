package window

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type glfwWindow struct {
	win    *glfw.Window
	mouse  mouseTracker
	scroll float64
}

var glfwKeys = [numKeys]glfw.Key{
	KeyForward:  glfw.KeyW,
	KeyBackward: glfw.KeyS,
	KeyLeft:     glfw.KeyA,
	KeyRight:    glfw.KeyD,
	KeyQuit:     glfw.KeyEscape,
}

func newGLFW(cfg Config) (*glfwWindow, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	// required on macOS
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw create window: %w", err)
	}
	win.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &glfwWindow{win: win}
	win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.mouse.move(x, y)
	})
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.scroll += yoff
	})
	return w, nil
}

func (w *glfwWindow) ShouldClose() bool     { return w.win.ShouldClose() }
func (w *glfwWindow) SetShouldClose(v bool) { w.win.SetShouldClose(v) }
func (w *glfwWindow) SwapBuffers()          { w.win.SwapBuffers() }
func (w *glfwWindow) Time() float64         { return glfw.GetTime() }

func (w *glfwWindow) FramebufferSize() (int, int) {
	return w.win.GetFramebufferSize()
}

func (w *glfwWindow) PollInput() Input {
	glfw.PollEvents()

	var in Input
	for k, key := range glfwKeys {
		in.Held[k] = w.win.GetKey(key) == glfw.Press
	}
	in.MouseDX, in.MouseDY = w.mouse.take()
	in.Scroll = float32(w.scroll)
	w.scroll = 0
	return in
}

func (w *glfwWindow) Close() {
	w.win.Destroy()
	glfw.Terminate()
}
