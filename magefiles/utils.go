//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// go-sdl2 and the Vulkan loader bindings are cgo packages.
var cgoEnv = map[string]string{"CGO_ENABLED": "1"}

// goCmd runs the go tool with cgo enabled and its output streamed.
func goCmd(args ...string) error {
	return sh.RunWithV(cgoEnv, mg.GoCmd(), args...)
}

// compileShader writes glslc's output next to dst and renames it into place, so
// anything watching dst only ever sees a complete module.
func compileShader(src, dst string) error {
	tmp := dst + ".tmp"
	if err := sh.RunV("glslc", src, "-o", tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error compiling %s: %w", src, err)
	}
	return os.Rename(tmp, dst)
}
