package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagModel   = flag.String("model", "", "Model file to open (.obj, .gltf, .glb)")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagBackend = flag.String("backend", "", "Window backend: glfw or sdl")
	flagWidth   = flag.Int("width", 0, "Window width")
	flagHeight  = flag.Int("height", 0, "Window height")
	flagStrict  = flag.Bool("strict", false, "Fail on incomplete scenes")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config. A positional
// argument is taken as the model path when -model is not given.
func applyFlags(cfg *Config) {
	if *flagModel != "" {
		cfg.Model.Path = *flagModel
	} else if flag.NArg() > 0 {
		cfg.Model.Path = flag.Arg(0)
	}
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBackend != "" {
		cfg.Window.Backend = *flagBackend
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagStrict {
		cfg.Model.StrictIncomplete = true
	}
}
