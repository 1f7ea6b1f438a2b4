package window

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

type sdlWindow struct {
	win    *sdl.Window
	ctx    sdl.GLContext
	closed bool
	start  uint32
}

var sdlKeys = [numKeys]sdl.Scancode{
	KeyForward:  sdl.SCANCODE_W,
	KeyBackward: sdl.SCANCODE_S,
	KeyLeft:     sdl.SCANCODE_A,
	KeyRight:    sdl.SCANCODE_D,
	KeyQuit:     sdl.SCANCODE_ESCAPE,
}

func newSDL(cfg Config) (*sdlWindow, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// attributes must be set before the window exists
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)

	win, err := sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		sdl.WINDOW_OPENGL|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	ctx, err := win.GLCreateContext()
	if err != nil {
		win.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	interval := 0
	if cfg.VSync {
		interval = 1
	}
	// vsync is best effort
	_ = sdl.GLSetSwapInterval(interval)
	sdl.SetRelativeMouseMode(true)

	return &sdlWindow{win: win, ctx: ctx, start: sdl.GetTicks()}, nil
}

func (w *sdlWindow) ShouldClose() bool     { return w.closed }
func (w *sdlWindow) SetShouldClose(v bool) { w.closed = v }
func (w *sdlWindow) SwapBuffers()          { w.win.GLSwap() }

func (w *sdlWindow) Time() float64 {
	return float64(sdl.GetTicks()-w.start) / 1000
}

func (w *sdlWindow) FramebufferSize() (int, int) {
	width, height := w.win.GLGetDrawableSize()
	return int(width), int(height)
}

func (w *sdlWindow) PollInput() Input {
	var in Input
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			w.closed = true
		case *sdl.MouseMotionEvent:
			in.MouseDX += float32(e.XRel)
			in.MouseDY -= float32(e.YRel)
		case *sdl.MouseWheelEvent:
			in.Scroll += float32(e.Y)
		}
	}

	state := sdl.GetKeyboardState()
	for k, code := range sdlKeys {
		in.Held[k] = state[code] != 0
	}
	return in
}

func (w *sdlWindow) Close() {
	if w.ctx != nil {
		sdl.GLDeleteContext(w.ctx)
	}
	w.win.Destroy()
	sdl.Quit()
}
