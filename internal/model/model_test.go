package model

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBuilderDeduplicates(t *testing.T) {
	a := Vertex{Pos: mgl32.Vec3{0, 0, 0}, Color: white, TexCoord: mgl32.Vec2{0, 0}}
	b := Vertex{Pos: mgl32.Vec3{1, 0, 0}, Color: white, TexCoord: mgl32.Vec2{1, 0}}
	c := Vertex{Pos: mgl32.Vec3{0, 1, 0}, Color: white, TexCoord: mgl32.Vec2{0, 1}}
	// same position as a, different texcoord
	d := Vertex{Pos: mgl32.Vec3{0, 0, 0}, Color: white, TexCoord: mgl32.Vec2{0.5, 0}}

	builder := NewBuilder()
	refs := []Vertex{a, b, c, c, b, a, d, a}
	want := []uint32{0, 1, 2, 2, 1, 0, 3, 0}

	for i, v := range refs {
		if got := builder.Add(v); got != want[i] {
			t.Errorf("Add #%d = %d, want %d", i, got, want[i])
		}
	}

	mesh := builder.Mesh()
	if len(mesh.Vertices) != 4 {
		t.Errorf("unique vertices = %d, want 4", len(mesh.Vertices))
	}
	if len(mesh.Indices) != len(refs) {
		t.Errorf("indices = %d, want %d", len(mesh.Indices), len(refs))
	}
	for i, index := range mesh.Indices {
		if mesh.Vertices[index] != refs[i] {
			t.Errorf("index %d resolves to %v, want %v", i, mesh.Vertices[index], refs[i])
		}
	}
}

func TestBuilderColorIsPartOfKey(t *testing.T) {
	builder := NewBuilder()
	builder.Add(Vertex{Color: mgl32.Vec3{1, 1, 1}})
	builder.Add(Vertex{Color: mgl32.Vec3{1, 0, 0}})

	if n := len(builder.Mesh().Vertices); n != 2 {
		t.Errorf("vertices = %d, want 2", n)
	}
}

// Two triangles sharing an edge: the shared (position, uv) pairs must be stored once.
const quadOBJ = `o quad
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 1.0 1.0 0.0
v 0.0 1.0 0.0
vt 0.0 0.0
vt 1.0 0.0
vt 1.0 1.0
vt 0.0 1.0
f 1/1 2/2 3/3
f 1/1 3/3 4/4
`

func TestLoadOBJSharedVertices(t *testing.T) {
	mesh, err := LoadOBJ(strings.NewReader(quadOBJ), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mesh.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4", len(mesh.Vertices))
	}
	if len(mesh.Indices) != 6 {
		t.Fatalf("indices = %d, want 6", len(mesh.Indices))
	}

	want := []uint32{0, 1, 2, 0, 2, 3}
	for i := range want {
		if mesh.Indices[i] != want[i] {
			t.Errorf("indices = %v, want %v", mesh.Indices, want)
			break
		}
	}

	first := mesh.Vertices[0]
	if first.Color != white {
		t.Errorf("color = %v, want white", first.Color)
	}
	if first.TexCoord != (mgl32.Vec2{0, 1}) {
		t.Errorf("texcoord = %v, want V flipped to (0, 1)", first.TexCoord)
	}
}

func TestLoadOBJSamePositionDifferentUV(t *testing.T) {
	src := `o seam
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 0.0 1.0 0.0
vt 0.0 0.0
vt 1.0 0.0
vt 0.0 1.0
vt 0.5 0.5
f 1/1 2/2 3/3
f 1/4 3/3 2/2
`
	mesh, err := LoadOBJ(strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mesh.Vertices) != 4 {
		t.Errorf("vertices = %d, want 4 (seam vertex duplicated)", len(mesh.Vertices))
	}
	if len(mesh.Indices) != 6 {
		t.Errorf("indices = %d, want 6", len(mesh.Indices))
	}
}

func TestLoadOBJTriangulatesQuads(t *testing.T) {
	src := `o quad
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 1.0 1.0 0.0
v 0.0 1.0 0.0
vt 0.0 0.0
vt 1.0 0.0
vt 1.0 1.0
vt 0.0 1.0
f 1/1 2/2 3/3 4/4
`
	mesh, err := LoadOBJ(strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mesh.Vertices) != 4 || len(mesh.Indices) != 6 {
		t.Errorf("got %d vertices / %d indices, want 4 / 6", len(mesh.Vertices), len(mesh.Indices))
	}
}
