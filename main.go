/*
rendercore opens a window and draws the configured mesh once per drawable
until the window is closed or the process is signalled.
*/
package main

import (
	"context"
	"flag"
	"os"

	"github.com/spaghettifunk/rendercore/engine"
	"github.com/spaghettifunk/rendercore/engine/core"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration")
	flag.Parse()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("loading configuration: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		core.LogFatal("invalid configuration: %s", err)
	}

	e := engine.New(engine.NewApplicationConfig(*configPath, cfg))
	defer e.Shutdown()

	if err := e.Initialize(); err != nil {
		core.LogError("initialization failed: %+v", err)
		e.Shutdown()
		os.Exit(1)
	}

	if err := e.Run(context.Background()); err != nil {
		core.LogError("engine stopped: %+v", err)
		e.Shutdown()
		os.Exit(1)
	}
}
