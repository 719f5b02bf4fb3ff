//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

var shaderOutputs = map[string]string{
	"shaders/shader.vert": "Shaders/TriangleVert.spv",
	"shaders/shader.frag": "Shaders/TriangleFrag.spv",
}

// Compiles the GLSL shaders to SPIR-V with glslc. Up-to-date outputs are skipped.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the tutorial binary into bin/.
func (Build) Tutorial() error {
	mg.Deps(Build.Shaders)
	return goCmd("build", "-o", filepath.Join("bin", "vulkan_tutorial"), "./cmd/vulkan_tutorial")
}

func buildShaders() error {
	for src, dst := range shaderOutputs {
		stale, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := compileShader(src, dst); err != nil {
			return err
		}
	}
	return nil
}
