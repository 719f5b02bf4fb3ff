//go:build mage

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Fetch mg.Namespace

const assetBaseURL = "https://vulkan-tutorial.com/resources"

var assetFiles = map[string]string{
	"Models/viking_room.obj":   assetBaseURL + "/viking_room.obj",
	"Textures/viking_room.png": assetBaseURL + "/viking_room.png",
}

// Downloads the viking room model and texture if they are not present.
func (Fetch) Assets() error {
	for dst, url := range assetFiles {
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := download(url, dst); err != nil {
			return err
		}
	}
	return nil
}

func download(url, dst string) error {
	fmt.Printf("Downloading %s\n", url)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
