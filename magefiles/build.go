//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderStages = map[string]string{
	"shaders/shader.vert": "shaders/vert.spv",
	"shaders/shader.frag": "shaders/frag.spv",
}

// Compiles the GLSL shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	for src, dst := range shaderStages {
		if _, err := executeCmd("glslc", withArgs(src, "-o", dst), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Compiles the shaders and builds the rendercore binary into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", "bin/rendercore", "."), withStream())
	return err
}
