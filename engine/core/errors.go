package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting     = errors.New("swapchain resized or recreated, booting")
	ErrNoSuitableMemoryType = errors.New("no suitable memory type")
	ErrNoSuitableDevice     = errors.New("no suitable physical device")
	ErrMissingExtension     = errors.New("required extension or layer missing")
	ErrFenceTimeout         = errors.New("fence wait timed out")
	ErrDeviceLost           = errors.New("device lost")
	ErrNotInitialized       = errors.New("render core not initialized")

	// ErrFatal marks errors the render loop must not recover from.
	ErrFatal = errors.New("fatal")
)

// Fatal marks err as unrecoverable. A nil error stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrFatal)
}

// IsFatal reports whether err was marked with Fatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
