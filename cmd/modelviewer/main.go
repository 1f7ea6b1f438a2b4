// Command modelviewer imports a model file and renders it with a fly camera.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/braheezy/glmodel/internal/camera"
	"github.com/braheezy/glmodel/internal/config"
	"github.com/braheezy/glmodel/internal/gpu"
	"github.com/braheezy/glmodel/internal/logger"
	"github.com/braheezy/glmodel/internal/model"
	"github.com/braheezy/glmodel/internal/shader"
	"github.com/braheezy/glmodel/internal/texture"
	"github.com/braheezy/glmodel/internal/window"
)

var (
	//go:embed shaders/model.vs
	vertexSource string
	//go:embed shaders/model.fs
	fragmentSource string
)

func main() {
	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer logger.Sync(log)

	if err := run(cfg, log); err != nil {
		log.Error("viewer failed", zap.Error(err))
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	win, err := window.New(window.Config{
		Backend: cfg.Window.Backend,
		Title:   cfg.Window.Title,
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
		VSync:   cfg.Window.VSync,
	}, log)
	if err != nil {
		return err
	}
	defer win.Close()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	log.Info("opengl ready", zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))
	gl.Enable(gl.DEPTH_TEST)

	prog, err := loadShader(cfg.Shader)
	if err != nil {
		return err
	}
	defer prog.Delete()

	kinds, err := cfg.Model.Kinds()
	if err != nil {
		return err
	}

	device := gpu.NewGL()
	cache := texture.NewCache(texture.NewLoader(device, cfg.Model.FlipTextures), log.Named("texture"))
	defer cache.Release()

	importer := model.NewImporter(device, cache,
		model.WithLogger(log.Named("import")),
		model.WithStrictIncomplete(cfg.Model.StrictIncomplete),
		model.WithPrefetch(cfg.Model.PrefetchWorkers),
		model.WithTextureKinds(kinds...),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, err := importer.Import(ctx, cfg.Model.Path)
	if err != nil {
		return err
	}
	defer m.Release()
	for _, w := range m.Warnings() {
		log.Warn("import warning", zap.Error(w))
	}

	render(ctx, win, prog, m)
	return nil
}

func loadShader(cfg config.ShaderConfig) (*shader.Shader, error) {
	if cfg.Vertex != "" {
		return shader.New(cfg.Vertex, cfg.Fragment)
	}
	return shader.FromSource(vertexSource, fragmentSource)
}

func render(ctx context.Context, win window.Window, prog *shader.Shader, m *model.Model) {
	cam := camera.New(mgl32.Vec3{0, 0, 3})

	prog.Use()
	prog.SetFloat("material.shininess", 32)
	prog.SetVec3("light.direction", mgl32.Vec3{-0.2, -1, -0.3})
	prog.SetVec3("light.ambient", mgl32.Vec3{0.2, 0.2, 0.2})
	prog.SetVec3("light.diffuse", mgl32.Vec3{0.8, 0.8, 0.8})
	prog.SetVec3("light.specular", mgl32.Vec3{1, 1, 1})
	prog.SetMat4("model", mgl32.Ident4())

	lastFrame := win.Time()
	for !win.ShouldClose() && ctx.Err() == nil {
		now := win.Time()
		deltaTime := float32(now - lastFrame)
		lastFrame = now

		processInput(win, cam, deltaTime)

		width, height := win.FramebufferSize()
		if width == 0 || height == 0 {
			// minimised
			win.SwapBuffers()
			continue
		}
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.05, 0.05, 0.05, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		prog.Use()
		prog.SetMat4("projection", cam.Projection(float32(width)/float32(height)))
		prog.SetMat4("view", cam.ViewMatrix())
		prog.SetVec3("viewPos", cam.Position())
		m.Draw(prog.ID())

		win.SwapBuffers()
	}
}

var moves = map[window.Key]camera.Movement{
	window.KeyForward:  camera.Forward,
	window.KeyBackward: camera.Backward,
	window.KeyLeft:     camera.Left,
	window.KeyRight:    camera.Right,
}

func processInput(win window.Window, cam *camera.Camera, deltaTime float32) {
	in := win.PollInput()
	if in.Held[window.KeyQuit] {
		win.SetShouldClose(true)
	}
	for key, move := range moves {
		if in.Held[key] {
			cam.ProcessKeyboard(move, deltaTime)
		}
	}
	cam.ProcessMouseMovement(in.MouseDX, in.MouseDY, true)
	if in.Scroll != 0 {
		cam.ProcessMouseScroll(in.Scroll)
	}
}
