package core

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestFatalMark(t *testing.T) {
	if Fatal(nil) != nil {
		t.Fatal("Fatal(nil) should be nil")
	}
	err := Fatal(errors.Wrap(ErrDeviceLost, "queue submit"))
	if !IsFatal(err) {
		t.Fatal("marked error not fatal")
	}
	if !errors.Is(err, ErrDeviceLost) {
		t.Fatal("mark hid the cause")
	}
	if IsFatal(ErrSwapchainBooting) {
		t.Fatal("unmarked error reported fatal")
	}
}
