// Package assets reads the files the renderer consumes: SPIR-V shaders, the texture
// image and the OBJ model. Nothing here touches Vulkan.
package assets

import (
	"io"
	"io/fs"

	"github.com/cockroachdb/errors"
)

var ErrAssetNotFound = errors.New("asset not found")

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ReadFile reads name from fsys. A missing file yields ErrAssetNotFound with the path
// in the message.
func ReadFile(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrAssetNotFound, "failed to open file %s", name)
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", name)
	}
	return data, nil
}

// Open is ReadFile for callers that want a stream.
func Open(fsys fs.FS, name string) (io.ReadCloser, error) {
	file, err := fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrAssetNotFound, "failed to open file %s", name)
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to open file %s", name)
	}
	return file, nil
}

// LoadShader reads a SPIR-V binary and returns it as the little-endian words the
// driver expects.
func LoadShader(fsys fs.FS, name string) ([]uint32, error) {
	data, err := ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Newf("shader %s: SPIR-V length %d is not a positive multiple of 4", name, len(data))
	}

	code := bytesToBytecode(data)
	if code[0] != spirvMagic {
		return nil, errors.Newf("shader %s: bad SPIR-V magic number %#08x", name, code[0])
	}

	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
