// Package config holds the viewer settings: window, shader and model
// paths, the lamp, the nanosuit material and the camera start.
//
// Settings start from Default and may be overridden by a YAML or TOML
// file. Fields left out of the file keep their default values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/nanoview/pkg/camera"
	"github.com/taigrr/nanoview/pkg/math3d"
)

// ErrUnknownFormat is returned for config files that are neither YAML
// nor TOML by extension.
var ErrUnknownFormat = errors.New("unknown config format")

// Vec3 is a three component value written as a list, e.g. [1, 0.5, 0.31].
type Vec3 [3]float64

// Vec returns v as a math3d vector.
func (v Vec3) Vec() math3d.Vec3 { return math3d.V3(v[0], v[1], v[2]) }

// Window is the window or terminal surface setup.
type Window struct {
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	Title  string `yaml:"title" toml:"title"`
}

// Shader names the stage sources of one program. Geometry is optional.
type Shader struct {
	Vertex   string `yaml:"vertex" toml:"vertex"`
	Fragment string `yaml:"fragment" toml:"fragment"`
	Geometry string `yaml:"geometry,omitempty" toml:"geometry,omitempty"`
}

func (s Shader) complete() bool { return s.Vertex != "" && s.Fragment != "" }

// Shaders are the programs the viewer draws with.
type Shaders struct {
	Lamp Shader `yaml:"lamp" toml:"lamp"`
	Nano Shader `yaml:"nano" toml:"nano"`
}

// Models are the model files the viewer loads.
type Models struct {
	Lamp string `yaml:"lamp" toml:"lamp"`
	Nano string `yaml:"nano" toml:"nano"`
}

// Camera is the camera start state.
type Camera struct {
	Position    Vec3    `yaml:"position" toml:"position"`
	Yaw         float64 `yaml:"yaw" toml:"yaw"`
	Pitch       float64 `yaml:"pitch" toml:"pitch"`
	Speed       float64 `yaml:"speed" toml:"speed"`
	Sensitivity float64 `yaml:"sensitivity" toml:"sensitivity"`
	Zoom        float64 `yaml:"zoom" toml:"zoom"`
}

// Lamp is the light source. Its x and z orbit the origin at run time.
type Lamp struct {
	Position Vec3 `yaml:"position" toml:"position"`
	Color    Vec3 `yaml:"color" toml:"color"`
}

// Material is the nanosuit material pushed each frame.
type Material struct {
	Ambient   Vec3    `yaml:"ambient" toml:"ambient"`
	Diffuse   Vec3    `yaml:"diffuse" toml:"diffuse"`
	Specular  Vec3    `yaml:"specular" toml:"specular"`
	Shininess float64 `yaml:"shininess" toml:"shininess"`
}

// Render holds frame setup.
type Render struct {
	ClearColor     [4]float64 `yaml:"clear_color" toml:"clear_color"`
	Near           float64    `yaml:"near" toml:"near"`
	Far            float64    `yaml:"far" toml:"far"`
	Wireframe      bool       `yaml:"wireframe" toml:"wireframe"`
	MaxTextureSize int        `yaml:"max_texture_size" toml:"max_texture_size"`
}

// Config is the complete viewer configuration.
type Config struct {
	Window   Window   `yaml:"window" toml:"window"`
	Shaders  Shaders  `yaml:"shaders" toml:"shaders"`
	Models   Models   `yaml:"models" toml:"models"`
	Camera   Camera   `yaml:"camera" toml:"camera"`
	Lamp     Lamp     `yaml:"lamp" toml:"lamp"`
	Nano     Material `yaml:"nano" toml:"nano"`
	Render   Render   `yaml:"render" toml:"render"`
	Backend  string   `yaml:"backend" toml:"backend"`
	FPS      int      `yaml:"fps" toml:"fps"`
	Watch    bool     `yaml:"watch" toml:"watch"`
	LogLevel string   `yaml:"log_level" toml:"log_level"`
}

// Backends the viewer can render with.
const (
	BackendGL   = "gl"
	BackendTerm = "term"
)

// Default returns the stock viewer setup.
func Default() Config {
	return Config{
		Window: Window{Width: 800, Height: 600, Title: "Project 1"},
		Shaders: Shaders{
			Lamp: Shader{Vertex: "shaders/lampShader.vs", Fragment: "shaders/lampShader.frag"},
			Nano: Shader{Vertex: "shaders/nanoShader.vs", Fragment: "shaders/nanoShader.frag"},
		},
		Models: Models{
			Lamp: "resources/objects/cube/cube.obj",
			Nano: "resources/objects/nanosuit/nanosuit.obj",
		},
		Camera: Camera{
			Position:    Vec3{0, 0, 3},
			Yaw:         camera.DefaultYaw,
			Pitch:       camera.DefaultPitch,
			Speed:       camera.DefaultSpeed,
			Sensitivity: camera.DefaultSensitivity,
			Zoom:        camera.DefaultZoom,
		},
		Lamp: Lamp{
			Position: Vec3{3, 2.75, 0},
			Color:    Vec3{1, 1, 1},
		},
		Nano: Material{
			Ambient:   Vec3{1, 1, 1},
			Diffuse:   Vec3{1, 0.5, 0.31},
			Specular:  Vec3{0.5, 0.5, 0.5},
			Shininess: 4,
		},
		Render: Render{
			ClearColor:     [4]float64{0.2, 0.2, 0.2, 1},
			Near:           0.1,
			Far:            100,
			MaxTextureSize: 4096,
		},
		Backend:  BackendGL,
		FPS:      60,
		LogLevel: "info",
	}
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads the file at path over Default. A leading ~ in path and in
// the shader and model paths is expanded to the home directory.
func Load(path string) (Config, error) {
	cfg := Default()

	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("expand config path: %w", err)
	}
	f, err := formatOf(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case formatTOML:
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.expandPaths(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Shaders.Lamp.Vertex, &c.Shaders.Lamp.Fragment, &c.Shaders.Lamp.Geometry,
		&c.Shaders.Nano.Vertex, &c.Shaders.Nano.Fragment, &c.Shaders.Nano.Geometry,
		&c.Models.Lamp, &c.Models.Nano,
	} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Save writes c to path as YAML or TOML, chosen by extension.
func Save(path string, c Config) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	switch f {
	case formatYAML:
		data, err = yaml.Marshal(c)
	case formatTOML:
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Level parses LogLevel as a slog level name such as "debug" or "warn+2".
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Validate reports every setting the viewer cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if !c.Shaders.Lamp.complete() {
		errs = append(errs, errors.New("lamp shader needs vertex and fragment sources"))
	}
	if !c.Shaders.Nano.complete() {
		errs = append(errs, errors.New("nano shader needs vertex and fragment sources"))
	}
	if c.Models.Lamp == "" || c.Models.Nano == "" {
		errs = append(errs, errors.New("lamp and nano model paths are required"))
	}
	if c.Render.Near <= 0 || c.Render.Far <= c.Render.Near {
		errs = append(errs, fmt.Errorf("clip planes %g..%g must satisfy 0 < near < far", c.Render.Near, c.Render.Far))
	}
	if c.Camera.Zoom <= 0 || c.Camera.Zoom >= 180 {
		errs = append(errs, fmt.Errorf("camera zoom %g must be within (0, 180) degrees", c.Camera.Zoom))
	}
	if c.Backend != BackendGL && c.Backend != BackendTerm {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps %d must be positive", c.FPS))
	}
	if c.Render.MaxTextureSize < 0 {
		errs = append(errs, fmt.Errorf("max texture size %d must not be negative", c.Render.MaxTextureSize))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
