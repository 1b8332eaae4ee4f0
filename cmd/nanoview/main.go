// nanoview - lit model viewer
// Draws a nanosuit lit by an orbiting lamp, in an OpenGL window or in the
// terminal.
//
// Controls:
//
//	W/S/A/D     - Move forward/back/left/right
//	Q/Z         - Move up/down
//	Shift       - Move twice as fast
//	Mouse drag  - Look around
//	=/-         - Zoom in/out
//	8/7         - Raise/lower the model's ambient term
//	6/5         - Double/halve shininess
//	X           - Toggle wireframe
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/taigrr/nanoview/pkg/app"
	"github.com/taigrr/nanoview/pkg/config"
	"github.com/taigrr/nanoview/pkg/gfx"
	"github.com/taigrr/nanoview/pkg/gfx/glgpu"
	"github.com/taigrr/nanoview/pkg/gfx/softgpu"
	"github.com/taigrr/nanoview/pkg/models"
	"github.com/taigrr/nanoview/pkg/platform/glfwsurface"
	"github.com/taigrr/nanoview/pkg/platform/termsurface"
)

var (
	configPath = flag.String("config", "", "Path to a YAML or TOML config file")
	backend    = flag.String("backend", "", "Renderer: gl or term (overrides config)")
	targetFPS  = flag.Int("fps", 0, "Target FPS (overrides config)")
	watch      = flag.Bool("watch", false, "Reload shaders when their files change")
	wireframe  = flag.Bool("wireframe", false, "Start in wireframe mode")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn or error")
	logFile    = flag.String("log", "", "Write logs to this file instead of stderr")
	snapshot   = flag.String("snapshot", "", "Render one frame in software to this PNG and exit")
	dumpConfig = flag.String("dump-config", "", "Write the effective config to this file and exit")
)

// GLFW and GL calls must come from the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "nanoview - lit model viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: nanoview [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Move\n")
		fmt.Fprintf(os.Stderr, "  Q/Z         - Move up/down (Shift for double speed)\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Look around\n")
		fmt.Fprintf(os.Stderr, "  =/-         - Zoom\n")
		fmt.Fprintf(os.Stderr, "  8/7         - Ambient up/down\n")
		fmt.Fprintf(os.Stderr, "  6/5         - Shininess up/down\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return cfg, err
		}
	}

	if *backend != "" {
		cfg.Backend = *backend
	}
	if *targetFPS > 0 {
		cfg.FPS = *targetFPS
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.Watch = cfg.Watch || *watch
	cfg.Render.Wireframe = cfg.Render.Wireframe || *wireframe
	return cfg, cfg.Validate()
}

// setupLogging installs the default logger. The terminal backend owns the
// screen, so it discards logs unless a log file is given.
func setupLogging(cfg config.Config) (func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	switch {
	case *logFile != "":
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	case cfg.Backend == config.BackendTerm && *snapshot == "":
		w = io.Discard
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closeLog, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if *dumpConfig != "" {
		return config.Save(*dumpConfig, cfg)
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if *snapshot != "" {
		return renderSnapshot(cfg, *snapshot)
	}

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	switch cfg.Backend {
	case config.BackendTerm:
		return runTerminal(ctx, cfg)
	default:
		return runWindow(ctx, cfg)
	}
}

func runWindow(ctx context.Context, cfg config.Config) error {
	surface, err := glfwsurface.New(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title)
	if err != nil {
		return err
	}
	defer surface.Close()

	dev, err := glgpu.New()
	if err != nil {
		return err
	}
	slog.Info("opengl ready", "version", dev.Version())

	return runApp(ctx, cfg, dev, surface)
}

func runTerminal(ctx context.Context, cfg config.Config) error {
	dev := softgpu.New(cfg.Window.Width, cfg.Window.Height)
	surface, err := termsurface.New(dev, cfg.Window.Title, cfg.FPS)
	if err != nil {
		return err
	}
	defer surface.Close()

	fatal := models.Fatal
	models.Fatal = func(msg string, args ...any) {
		surface.Close()
		fmt.Fprintln(os.Stderr, append([]any{"Error:", msg}, args...)...)
		fatal(msg, args...)
	}
	defer func() { models.Fatal = fatal }()

	return runApp(ctx, cfg, dev, surface)
}

func runApp(ctx context.Context, cfg config.Config, dev gfx.Device, surface app.Surface) error {
	a, err := app.New(cfg, dev, surface)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

// renderSnapshot draws a single frame at the window size with the
// software device and writes it as a PNG.
func renderSnapshot(cfg config.Config, path string) error {
	dev := softgpu.New(cfg.Window.Width, cfg.Window.Height)
	surface := app.NewOffscreen(cfg.Window.Width, cfg.Window.Height)

	a, err := app.New(cfg, dev, surface)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Frame(); err != nil {
		return err
	}
	if err := dev.Framebuffer().SavePNG(path); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	stats := dev.Stats()
	slog.Info("snapshot written", "path", path, "triangles", stats.Triangles, "culled", stats.Culled)
	return nil
}
