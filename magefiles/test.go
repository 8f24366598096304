//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests. None of them need a GPU.
func (Test) Unit() error {
	args := []string{"test", "./engine/..."}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	_, err := executeCmd("go", withArgs(args...), withStream())
	return err
}
