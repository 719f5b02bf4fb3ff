//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders, then runs the tutorial from the repository root.
func (Run) Tutorial() error {
	mg.Deps(Fetch.Assets)
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run tutorial...")
	return goCmd("run", "./cmd/vulkan_tutorial")
}

// Runs the unit tests. None of them need a GPU.
func (Run) Tests() error {
	return goCmd("test", "./internal/...")
}
