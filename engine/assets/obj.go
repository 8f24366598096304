package assets

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/rendercore/engine/core"
	"github.com/udhos/gwob"
)

var white = mgl32.Vec3{1, 1, 1}

// LoadMesh picks a loader by extension. An empty path yields the built-in quad.
func LoadMesh(path string) (*Mesh, error) {
	if path == "" {
		return QuadMesh(), nil
	}
	return LoadOBJ(path)
}

// LoadOBJ reads a Wavefront OBJ file into a deduplicated mesh.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening model %s", path)
	}
	defer f.Close()

	mesh, err := parseOBJ(path, f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing model %s", path)
	}
	return mesh, nil
}

// ParseOBJ reads triangles and quads. Normals and materials are ignored.
// Texture V is flipped to match Vulkan's top-left origin.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	return parseOBJ("model", r)
}

func parseOBJ(name string, r io.Reader) (*Mesh, error) {
	// gwob skips lines it cannot parse and reports them through the logger.
	// Those are errors here; unknown statements are only worth a warning.
	var parseErr error
	options := &gwob.ObjParserOptions{
		IgnoreNormals: true,
		Logger: func(msg string) {
			msg = strings.TrimSpace(msg)
			switch {
			case strings.HasSuffix(msg, ": unexpected"):
				core.LogWarn("%s: %s", name, msg)
			case strings.HasPrefix(msg, "readLines:"), strings.HasPrefix(msg, "scanLines:"):
				if parseErr == nil {
					parseErr = errors.Newf("%s", msg)
				}
			default:
				core.LogDebug("%s: %s", name, msg)
			}
		},
	}

	obj, err := gwob.NewObjFromReader(name, r, options)
	if err != nil {
		return nil, errors.Wrap(err, "reading obj")
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if len(obj.Indices) == 0 {
		return nil, errors.New("model has no faces")
	}

	stride := obj.StrideSize / 4
	pos := obj.StrideOffsetPosition / 4
	tex := obj.StrideOffsetTexture / 4

	b := NewMeshBuilder()
	for _, i := range obj.Indices {
		base := i * stride
		if base+stride > len(obj.Coord) {
			return nil, errors.Newf("index %d out of range", i)
		}
		c := obj.Coord[base : base+stride]
		position := mgl32.Vec3{c[pos], c[pos+1], c[pos+2]}
		var uv mgl32.Vec2
		if obj.TextCoordFound {
			uv = mgl32.Vec2{c[tex], 1 - c[tex+1]}
		}
		b.Add(position, white, uv)
	}
	return b.Mesh(), nil
}
