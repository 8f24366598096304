package engine

import (
	"github.com/spaghettifunk/rendercore/engine/assets"
	"github.com/spaghettifunk/rendercore/engine/core"
	"github.com/spaghettifunk/rendercore/engine/renderer/vulkan"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel string
	Renderer core.RendererConfig
	// ConfigPath is watched for changes while the engine runs.
	ConfigPath string
}

// NewApplicationConfig flattens a loaded configuration for the engine.
func NewApplicationConfig(path string, cfg core.Config) *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:   cfg.Window.PosX,
		StartPosY:   cfg.Window.PosY,
		StartWidth:  cfg.Window.Width,
		StartHeight: cfg.Window.Height,
		Name:        cfg.Window.Name,
		LogLevel:    cfg.Log.Level,
		Renderer:    cfg.Renderer,
		ConfigPath:  path,
	}
}

// RendererOptions translates the renderer settings into render core options.
func (a *ApplicationConfig) RendererOptions(mesh *assets.Mesh, pipelines vulkan.PipelineFactory) []vulkan.Option {
	return []vulkan.Option{
		vulkan.WithFramesInFlight(int(a.Renderer.FramesInFlight)),
		vulkan.WithDrawables(a.Renderer.Drawables),
		vulkan.WithPresentWaitIdle(a.Renderer.PresentWaitIdle),
		vulkan.WithClearColor(a.Renderer.ClearColor),
		vulkan.WithMesh(mesh),
		vulkan.WithPipelineFactory(pipelines),
	}
}
