package options

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/richinsley/goshadertoyvr/shader"
)

// DefaultConfigPath is read when -config is not given. A missing file there
// is not an error.
const DefaultConfigPath = "~/.config/goshadertoyvr/config.toml"

// Options configures the application. Values come from the defaults, then
// the TOML config file, then command line flags.
type Options struct {
	Width  int  `toml:"width"`
	Height int  `toml:"height"`
	VSync  bool `toml:"vsync"`

	UIWidth  int `toml:"ui_width"`
	UIHeight int `toml:"ui_height"`
	// UIFPS is how often the UI thread draws a frame.
	UIFPS int `toml:"ui_fps"`
	// ReleaseIntervalMS is how often the UI thread takes back textures.
	ReleaseIntervalMS int `toml:"release_interval_ms"`

	ResolutionScale float64 `toml:"resolution_scale"`
	PositionScale   float64 `toml:"position_scale"`

	// Preset is the bundled shader shown at startup when Shader is empty.
	Preset int `toml:"preset"`
	// Shader is a shader document or bare fragment source to load.
	Shader string `toml:"shader"`
	// Watch reloads Shader when it changes on disk.
	Watch bool `toml:"watch"`
	// Shadertoy is a shadertoy.com shader ID or URL to fetch and show.
	Shadertoy string `toml:"shadertoy"`
	// ShadertoyKey enables the public API. Without it the site endpoint is
	// used.
	ShadertoyKey string `toml:"shadertoy_key"`
	// CacheDir holds fetched shaders.
	CacheDir string `toml:"cache_dir"`
	Dialect  string `toml:"dialect"`
	// ShaderDir is where saved shaders are written.
	ShaderDir string `toml:"shader_dir"`

	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`
	Development bool   `toml:"development"`

	// ConfigPath is the file the options were read from, if any.
	ConfigPath string `toml:"-"`
}

func Default() Options {
	return Options{
		Width:             1280,
		Height:            720,
		VSync:             true,
		UIWidth:           1280,
		UIHeight:          720,
		UIFPS:             30,
		ReleaseIntervalMS: 100,
		ResolutionScale:   1,
		PositionScale:     1,
		Dialect:           string(shader.DialectGLSL),
		ShaderDir:         "~/.config/goshadertoyvr/shaders",
		CacheDir:          "~/.cache/goshadertoyvr",
		LogLevel:          "info",
		LogFile:           "~/.config/goshadertoyvr/goshadertoyvr.log",
	}
}

func (o *Options) bind(set *flag.FlagSet) *string {
	config := set.String("config", DefaultConfigPath, "TOML configuration file")
	set.IntVar(&o.Width, "width", o.Width, "window width")
	set.IntVar(&o.Height, "height", o.Height, "window height")
	set.BoolVar(&o.VSync, "vsync", o.VSync, "wait for vertical sync")
	set.IntVar(&o.UIWidth, "ui-width", o.UIWidth, "UI surface width")
	set.IntVar(&o.UIHeight, "ui-height", o.UIHeight, "UI surface height")
	set.IntVar(&o.UIFPS, "ui-fps", o.UIFPS, "UI frames per second")
	set.IntVar(&o.ReleaseIntervalMS, "release-interval", o.ReleaseIntervalMS, "milliseconds between UI texture reclaims")
	set.Float64Var(&o.ResolutionScale, "resolution-scale", o.ResolutionScale, "offscreen resolution scale, 0.1 to 1")
	set.Float64Var(&o.PositionScale, "position-scale", o.PositionScale, "viewer position scale")
	set.IntVar(&o.Preset, "preset", o.Preset, "bundled preset to show at startup")
	set.StringVar(&o.Shader, "shader", o.Shader, "shader document (.xml, .json) or fragment source file")
	set.BoolVar(&o.Watch, "watch", o.Watch, "reload -shader when it changes")
	set.StringVar(&o.Shadertoy, "shadertoy", o.Shadertoy, "shadertoy.com shader ID or URL to fetch")
	set.StringVar(&o.ShadertoyKey, "shadertoy-key", o.ShadertoyKey, "shadertoy.com API key (default $SHADERTOY_KEY)")
	set.StringVar(&o.CacheDir, "cache-dir", o.CacheDir, "directory fetched shaders are cached in, empty to disable")
	set.StringVar(&o.Dialect, "dialect", o.Dialect, "shader dialect: glsl or webgl2")
	set.StringVar(&o.ShaderDir, "shader-dir", o.ShaderDir, "directory saved shaders are written to")
	set.StringVar(&o.MetricsAddr, "metrics", o.MetricsAddr, "address to serve /metrics on, empty to disable")
	set.StringVar(&o.LogLevel, "log-level", o.LogLevel, "debug, info, warn or error")
	set.StringVar(&o.LogFile, "log-file", o.LogFile, "log file, empty to log to stderr only")
	set.BoolVar(&o.Development, "dev", o.Development, "human readable development logging")
	return config
}

// Parse reads the options for args (without the program name). Flags
// given on the command line win over the config file.
func Parse(name string, args []string, output io.Writer) (Options, error) {
	cli := Default()
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(output)
	configPath := cli.bind(flags)
	if err := flags.Parse(args); err != nil {
		return Options{}, err
	}

	o := Default()
	explicit := false
	flags.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })
	if err := o.LoadFile(*configPath); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Options{}, err
		}
	}

	merged := flag.NewFlagSet(name, flag.ContinueOnError)
	merged.SetOutput(io.Discard)
	o.bind(merged)
	var err error
	flags.Visit(func(f *flag.Flag) {
		if err == nil {
			err = merged.Set(f.Name, f.Value.String())
		}
	})
	if err != nil {
		return Options{}, err
	}
	if err := o.expand(); err != nil {
		return Options{}, err
	}
	return o, o.Validate()
}

// LoadFile overlays the settings in a TOML file onto o.
func (o *Options) LoadFile(path string) error {
	p, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand %s: %w", path, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", p, err)
	}
	if err := toml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", p, err)
	}
	o.ConfigPath = p
	return nil
}

// Save writes o as TOML.
func (o *Options) Save(path string) error {
	p, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand %s: %w", path, err)
	}
	data, err := toml.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(p, data, 0644)
}

func (o *Options) expand() error {
	if o.ShadertoyKey == "" {
		o.ShadertoyKey = os.Getenv("SHADERTOY_KEY")
	}
	for _, p := range []*string{&o.Shader, &o.ShaderDir, &o.CacheDir, &o.LogFile} {
		if *p == "" {
			continue
		}
		v, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %s: %w", *p, err)
		}
		*p = v
	}
	return nil
}

func (o *Options) Validate() error {
	var errs []error
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d is invalid", o.Width, o.Height))
	}
	if o.UIWidth <= 0 || o.UIHeight <= 0 {
		errs = append(errs, fmt.Errorf("ui size %dx%d is invalid", o.UIWidth, o.UIHeight))
	}
	if o.UIFPS <= 0 {
		errs = append(errs, fmt.Errorf("ui fps %d is invalid", o.UIFPS))
	}
	if o.ReleaseIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("release interval %dms is invalid", o.ReleaseIntervalMS))
	}
	if o.ResolutionScale < 0.1 || o.ResolutionScale > 1 {
		errs = append(errs, fmt.Errorf("resolution scale %g is outside [0.1, 1]", o.ResolutionScale))
	}
	if _, err := shader.ParseDialect(o.Dialect); err != nil {
		errs = append(errs, err)
	}
	if o.Watch && o.Shader == "" {
		errs = append(errs, errors.New("-watch needs -shader"))
	}
	if o.Shader != "" && o.Shadertoy != "" {
		errs = append(errs, errors.New("-shader and -shadertoy are exclusive"))
	}
	return errors.Join(errs...)
}

// UIInterval is the time between UI frames.
func (o *Options) UIInterval() time.Duration {
	return time.Second / time.Duration(o.UIFPS)
}

func (o *Options) ReleaseInterval() time.Duration {
	return time.Duration(o.ReleaseIntervalMS) * time.Millisecond
}
