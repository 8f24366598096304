package core

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Name   string `toml:"name"`
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	FramesInFlight  uint32     `toml:"frames_in_flight"`
	Drawables       uint32     `toml:"drawables"`
	PresentWaitIdle bool       `toml:"present_wait_idle"`
	Validation      bool       `toml:"validation"`
	ClearColor      [4]float32 `toml:"clear_color"`
	Mesh            string     `toml:"mesh"`
	VertShader      string     `toml:"vert_shader"`
	FragShader      string     `toml:"frag_shader"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Name:   "rendercore",
			PosX:   100,
			PosY:   100,
			Width:  1024,
			Height: 768,
		},
		Renderer: RendererConfig{
			FramesInFlight:  2,
			Drawables:       4,
			PresentWaitIdle: true,
			Validation:      false,
			ClearColor:      [4]float32{0, 0, 0, 1},
			VertShader:      "shaders/vert.spv",
			FragShader:      "shaders/frag.spv",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		LogWarn("config file %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "decoding config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight == 0 {
		return errors.New("frames_in_flight must be at least 1")
	}
	return nil
}

// WatchConfig reloads path on every write and hands the result to onChange until ctx is done.
// Decoding errors are logged and the previous configuration stays in effect.
func WatchConfig(ctx context.Context, path string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating config watcher")
	}
	defer watcher.Close()

	// Editors replace files on save, so watch the directory and filter by name.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.Wrapf(err, "watching %s", filepath.Dir(target))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != target || !e.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := LoadConfig(path)
			if err != nil {
				LogWarn("config reload failed: %s", err)
				continue
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			LogWarn("config watcher: %s", err)
		}
	}
}
