package renderer

import (
	"io"
	"io/fs"

	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/vulkan_tutorial/internal/assets"
	"github.com/vkngwrapper/vulkan_tutorial/internal/config"
	"github.com/vkngwrapper/vulkan_tutorial/internal/model"
)

// loadSceneAssets decodes the texture and parses the model concurrently. Nothing here
// touches Vulkan; uploads happen afterwards on the calling goroutine.
func loadSceneAssets(fsys fs.FS, cfg config.Assets) (*model.Mesh, *assets.Texture, error) {
	var mesh *model.Mesh
	var tex *assets.Texture

	var g errgroup.Group
	g.Go(func() error {
		var err error
		tex, err = assets.DecodeTexture(fsys, cfg.Texture)
		return err
	})
	g.Go(func() error {
		var err error
		mesh, err = loadMesh(fsys, cfg.Model, cfg.Material)
		return err
	})

	err := g.Wait()
	if err != nil {
		return nil, nil, err
	}
	return mesh, tex, nil
}

// loadMesh reads an OBJ model. The material library is optional.
func loadMesh(fsys fs.FS, modelPath, materialPath string) (*model.Mesh, error) {
	meshFile, err := assets.Open(fsys, modelPath)
	if err != nil {
		return nil, err
	}
	defer meshFile.Close()

	var matFile io.Reader
	if materialPath != "" {
		f, err := assets.Open(fsys, materialPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		matFile = f
	}

	return model.LoadOBJ(meshFile, matFile)
}
