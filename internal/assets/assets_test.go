package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(fstest.MapFS{}, "Shaders/TriangleVert.spv")
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
	if !bytes.Contains([]byte(err.Error()), []byte("Shaders/TriangleVert.spv")) {
		t.Errorf("error should name the path: %v", err)
	}
}

func TestLoadShader(t *testing.T) {
	fsys := fstest.MapFS{
		"vert.spv": {Data: []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}},
		"odd.spv":  {Data: []byte{1, 2, 3}},
	}

	words, err := LoadShader(fsys, "vert.spv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 0x00010000 {
		t.Errorf("unexpected words %#x", words)
	}

	if _, err := LoadShader(fsys, "odd.spv"); err == nil {
		t.Error("expected error for truncated SPIR-V")
	}
}

func TestLoadShaderBadMagic(t *testing.T) {
	fsys := fstest.MapFS{
		"text.spv": {Data: []byte("#version 450")},
		"zero.spv": {Data: []byte{0, 0, 0, 0, 0, 0, 0, 0}},
		"swap.spv": {Data: []byte{0x07, 0x23, 0x02, 0x03}},
	}

	for name := range fsys {
		if _, err := LoadShader(fsys, name); err == nil {
			t.Errorf("%s: expected magic number error", name)
		}
	}
}

func TestMipLevels(t *testing.T) {
	tests := []struct {
		width, height int
		levels        int
	}{
		{512, 512, 10},
		{300, 200, 9},
		{200, 300, 9},
		{1024, 1, 11},
		{1, 1, 1},
		{2, 1, 2},
		{3, 3, 2},
		{0, 0, 1},
	}

	for _, test := range tests {
		if got := MipLevels(test.width, test.height); got != test.levels {
			t.Errorf("MipLevels(%d, %d) = %d, want %d", test.width, test.height, got, test.levels)
		}
	}
}

func TestMipChainEndsAtOne(t *testing.T) {
	width, height := 300, 200
	levels := MipLevels(width, height)
	for i := 1; i < levels; i++ {
		width, height = NextMipExtent(width, height)
	}
	if width != 1 || height != 1 {
		t.Errorf("last level is %dx%d, want 1x1", width, height)
	}
}

func TestDecodeTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(2, 1, color.NRGBA{B: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	tex, err := DecodeTexture(fstest.MapFS{"tex.png": {Data: buf.Bytes()}}, "tex.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tex.Width != 3 || tex.Height != 2 {
		t.Fatalf("size %dx%d, want 3x2", tex.Width, tex.Height)
	}
	if len(tex.Pixels) != 3*2*4 {
		t.Fatalf("pixel bytes %d, want 24", len(tex.Pixels))
	}
	if !bytes.Equal(tex.Pixels[0:4], []byte{255, 0, 0, 255}) {
		t.Errorf("first pixel %v", tex.Pixels[0:4])
	}
	last := tex.Pixels[len(tex.Pixels)-4:]
	if !bytes.Equal(last, []byte{0, 0, 255, 255}) {
		t.Errorf("last pixel %v", last)
	}
	if tex.MipLevels() != 2 {
		t.Errorf("mip levels %d, want 2", tex.MipLevels())
	}
}

func TestDecodeTextureGarbage(t *testing.T) {
	_, err := DecodeTexture(fstest.MapFS{"tex.png": {Data: []byte("not an image")}}, "tex.png")
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestShaderWatcher(t *testing.T) {
	dir := t.TempDir()
	vert := filepath.Join(dir, "vert.spv")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(vert, []byte{0, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	watcher, err := NewShaderWatcher(log.New(io.Discard), vert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Close()

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-watcher.Changed():
		t.Fatal("unrelated file triggered a change")
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(vert, []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-watcher.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification for watched file")
	}
}

func TestShaderWatcherWaitsForRewrite(t *testing.T) {
	dir := t.TempDir()
	vert := filepath.Join(dir, "vert.spv")
	code := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	if err := os.WriteFile(vert, code, 0o644); err != nil {
		t.Fatal(err)
	}

	watcher, err := NewShaderWatcher(log.New(io.Discard), vert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Close()

	// Truncate first, then write the module in two pieces, the way a compiler does
	f, err := os.Create(vert)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(code[:4]); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(code[4:]); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-watcher.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification after rewrite")
	}

	if _, err := LoadShader(os.DirFS(dir), "vert.spv"); err != nil {
		t.Fatalf("shader incomplete when the change was reported: %v", err)
	}

	select {
	case <-watcher.Changed():
		t.Fatal("one rewrite produced more than one notification")
	case <-time.After(3 * settleDelay):
	}
}
