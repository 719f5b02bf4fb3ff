package model

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
)

var white = mgl32.Vec3{1, 1, 1}

// LoadOBJ decodes an OBJ stream. Material data is parsed but only geometry and UVs
// are used; mtl may be nil.
func LoadOBJ(objReader io.Reader, mtl io.Reader) (*Mesh, error) {
	if mtl == nil {
		mtl = strings.NewReader("")
	}

	// Faces are attached to the current object; files without an "o" line need one.
	decoder, err := obj.DecodeReader(io.MultiReader(strings.NewReader("o model\n"), objReader), mtl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode model")
	}

	builder := NewBuilder()
	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			// Fan-triangulate polygons
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					vertex, err := faceVertex(decoder, face, corner)
					if err != nil {
						return nil, err
					}
					builder.Add(vertex)
				}
			}
		}
	}

	return builder.Mesh(), nil
}

func faceVertex(decoder *obj.Decoder, face obj.Face, corner int) (Vertex, error) {
	vertInd := face.Vertices[corner]
	if vertInd < 0 || vertInd*3+2 >= len(decoder.Vertices) {
		return Vertex{}, errors.Newf("face references vertex %d of %d", vertInd, len(decoder.Vertices)/3)
	}

	vertex := Vertex{
		Pos: mgl32.Vec3{
			decoder.Vertices[vertInd*3],
			decoder.Vertices[vertInd*3+1],
			decoder.Vertices[vertInd*3+2],
		},
		Color: white,
	}

	if corner < len(face.Uvs) {
		uvInd := face.Uvs[corner]
		if uvInd >= 0 && uvInd*2+1 < len(decoder.Uvs) {
			// OBJ puts v=0 at the bottom, Vulkan samples with v=0 at the top
			vertex.TexCoord = mgl32.Vec2{
				decoder.Uvs[uvInd*2],
				1.0 - decoder.Uvs[uvInd*2+1],
			}
		}
	}

	return vertex, nil
}
