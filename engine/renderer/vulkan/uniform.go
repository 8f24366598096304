package vulkan

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	mat4Size = 16 * 4

	UniformViewOffset = 0
	UniformProjOffset = mat4Size
	UniformBufferSize = 2 * mat4Size
)

// UniformBufferObject is the per-image camera block bound at set 0, binding 0.
type UniformBufferObject struct {
	View mgl32.Mat4
	Proj mgl32.Mat4
}

// Encode writes view then proj as column-major little-endian float32.
func (u UniformBufferObject) Encode() []byte {
	b := make([]byte, UniformBufferSize)
	putMat4(b[UniformViewOffset:], u.View)
	putMat4(b[UniformProjOffset:], u.Proj)
	return b
}

func DecodeUniformBufferObject(b []byte) (UniformBufferObject, error) {
	if len(b) < UniformBufferSize {
		return UniformBufferObject{}, errors.Newf("uniform buffer too short: %d bytes", len(b))
	}
	return UniformBufferObject{
		View: getMat4(b[UniformViewOffset:]),
		Proj: getMat4(b[UniformProjOffset:]),
	}, nil
}

func putMat4(b []byte, m mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
}

func getMat4(b []byte) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return m
}
