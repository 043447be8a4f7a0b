package panoptic

import (
	"context"
	"time"

	Logger "github.com/Luismorlan/postwall/utils/log"
)

const (
	GracefulRetryDelay = 3
)

// Run a module until it returns without error or ctx is done. A module that
// fails is restarted after GracefulRetryDelay seconds.
func RunModuleWithGracefulRestart(ctx context.Context, module *Module) {
	for {
		err := (*module).RunModule(ctx)
		if err == nil {
			break
		}
		Logger.Log.Errorf(
			"Module %s exited with error %v, retry in %d seconds",
			(*module).Name(),
			err,
			GracefulRetryDelay)

		// Wait for a small amount of time and restart.
		select {
		case <-ctx.Done():
			return
		case <-time.After(GracefulRetryDelay * time.Second):
		}
	}
}

type Module interface {
	// RunModule contains the customized logic of the module. It takes in a
	// context object by which its lifecycle is managed. Return error if
	// encountered any error during execution.
	RunModule(ctx context.Context) error

	// Return name of the Module. Uniquely identifies the module instance. Note
	// that if there are multiple instances of the same module, each instance
	// should have a unique name instead of using the same name.
	Name() string

	// Shutdown blocks until the module released everything it holds. It is
	// called once, after the Engine's context is cancelled.
	Shutdown()
}

// Initializer is implemented by modules that must set up shared resources,
// such as event bus subscriptions, before any module starts running.
type Initializer interface {
	Init(ctx context.Context) error
}
