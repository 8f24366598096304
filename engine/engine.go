package engine

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/rendercore/engine/assets"
	"github.com/spaghettifunk/rendercore/engine/core"
	"github.com/spaghettifunk/rendercore/engine/platform"
	"github.com/spaghettifunk/rendercore/engine/renderer/vulkan"
	"golang.org/x/sync/errgroup"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// statsInterval is how often, in seconds, frame statistics are logged.
const statsInterval = 5.0

type Engine struct {
	currentStage Stage
	app          *ApplicationConfig

	platform   *platform.Platform
	instance   *vulkan.InstanceContext
	device     *vulkan.DeviceContext
	pipelines  *vulkan.GraphicsPipelineFactory
	renderCore *vulkan.RenderCore

	clock   *core.Clock
	metrics *core.Metrics

	isRunning   atomic.Bool
	isSuspended atomic.Bool
	width       uint32
	height      uint32
}

func New(app *ApplicationConfig) *Engine {
	core.SetLogLevel(app.LogLevel)
	return &Engine{
		currentStage: EngineStageUninitialized,
		app:          app,
		platform:     platform.New(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        app.StartWidth,
		height:       app.StartHeight,
	}
}

// Initialize brings up the window, the instance and device tiers and the
// render core, in that order. Shutdown releases whatever was created.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.app

	if !core.EventSystemInitialize() {
		return errors.New("failed to initialize the event system")
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
		return err
	}

	instance, err := vulkan.CreateInstance(app.Name, e.platform.RequiredExtensions(), app.Renderer.Validation)
	if err != nil {
		return err
	}
	e.instance = instance

	surface, err := e.platform.CreateSurface(instance.Instance)
	if err != nil {
		return err
	}
	instance.AttachSurface(surface)

	device, err := vulkan.CreateDevice(instance)
	if err != nil {
		return err
	}
	e.device = device

	vert, err := assets.LoadSPIRV(app.Renderer.VertShader)
	if err != nil {
		return err
	}
	frag, err := assets.LoadSPIRV(app.Renderer.FragShader)
	if err != nil {
		return err
	}
	pipelines, err := vulkan.NewPipelineFactory(device, vert, frag)
	if err != nil {
		return err
	}
	e.pipelines = pipelines

	mesh, err := assets.LoadMesh(app.Renderer.Mesh)
	if err != nil {
		return err
	}
	core.LogInfo("Mesh loaded: %d vertices, %d indices.", mesh.VertexCount(), mesh.IndexCount())

	rc, err := vulkan.Create(device, e.platform, app.RendererOptions(mesh, pipelines)...)
	if err != nil {
		return err
	}
	e.renderCore = rc

	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop on the calling goroutine, which must be the main
// thread. The config watcher and signal handler run alongside it until the
// loop ends.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := core.WatchConfig(gctx, e.app.ConfigPath, e.onConfigChange); err != nil {
			core.LogWarn("config hot reload disabled: %s", err)
		}
		return nil
	})
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
		defer signal.Stop(sigCh)
		select {
		case s := <-sigCh:
			core.LogInfo("Received %s, shutting down.", s)
			e.isRunning.Store(false)
		case <-gctx.Done():
		}
		return nil
	})

	err := e.loop()
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func (e *Engine) loop() error {
	e.clock.Start()
	lastReport := 0.0

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			break
		}
		if e.isSuspended.Load() {
			e.platform.WaitMessages()
			continue
		}

		e.clock.Update()
		frameStart := e.clock.Elapsed()

		if err := e.renderCore.RenderFrame(false); err != nil {
			core.LogError("Render frame failed, shutting down: %s", err)
			return err
		}

		e.clock.Update()
		now := e.clock.Elapsed()
		e.metrics.Update(now - frameStart)
		if now-lastReport >= statsInterval {
			fps, ms := e.metrics.Frame()
			core.LogDebug("Frame %d: %.0f fps, %.3f ms avg.", e.renderCore.Frame(), fps, ms)
			lastReport = now
		}
	}
	return nil
}

// Shutdown tears the tiers down innermost first. It is safe after a failed
// Initialize and safe to call twice.
func (e *Engine) Shutdown() {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	if e.renderCore != nil {
		e.renderCore.Destroy()
		e.renderCore = nil
	}
	if e.pipelines != nil {
		e.pipelines.Close()
		e.pipelines = nil
	}
	if e.device != nil {
		e.device.Destroy()
		e.device = nil
	}
	if e.instance != nil {
		e.instance.Destroy()
		e.instance = nil
	}
	if e.platform != nil {
		e.platform.Shutdown()
		e.platform = nil
	}
	core.EventSystemShutdown()
	e.currentStage = EngineStageUninitialized
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onConfigChange(cfg core.Config) {
	if cfg.Log.Level != core.LogLevel() {
		core.SetLogLevel(cfg.Log.Level)
		core.LogInfo("Log level set to %s.", core.LogLevel())
	}
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended.Store(true)
		return true
	}
	if e.isSuspended.Swap(false) {
		core.LogInfo("Window restored, resuming application.")
	}
	if e.renderCore != nil {
		e.renderCore.NotifyResized()
	}
	return true
}
