package assets

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"math/bits"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Texture is a decoded image as tightly packed RGBA8 rows.
type Texture struct {
	Width  int
	Height int
	Pixels []byte
}

// MipLevels is the size of the full mip chain for a width x height image:
// floor(log2(max(width, height))) + 1.
func (t *Texture) MipLevels() int {
	return MipLevels(t.Width, t.Height)
}

func DecodeTexture(fsys fs.FS, name string) (*Texture, error) {
	data, err := ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load texture image %s", name)
	}

	bounds := decoded.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)

	if rgba.Bounds().Empty() {
		return nil, errors.Newf("texture image %s (%s) is empty", name, format)
	}

	return &Texture{
		Width:  rgba.Bounds().Dx(),
		Height: rgba.Bounds().Dy(),
		Pixels: rgba.Pix,
	}, nil
}

func MipLevels(width, height int) int {
	largest := width
	if height > largest {
		largest = height
	}
	if largest < 1 {
		return 1
	}

	return bits.Len(uint(largest))
}

// NextMipExtent halves each dimension, never going below 1.
func NextMipExtent(width, height int) (int, int) {
	if width > 1 {
		width /= 2
	}
	if height > 1 {
		height /= 2
	}
	return width, height
}
