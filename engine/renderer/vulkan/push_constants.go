package vulkan

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// Push constant block shared by the vertex and fragment stages.
const (
	ModelMatrixOffset = 0
	ModelMatrixSize   = mat4Size
	OpacityOffset     = ModelMatrixOffset + ModelMatrixSize
	OpacitySize       = 4
	PushConstantsSize = OpacityOffset + OpacitySize
)

type PushConstantRange struct {
	Stages vk.ShaderStageFlags
	Offset uint32
	Size   uint32
}

// PushConstantRanges are the ranges declared in the pipeline layout.
func PushConstantRanges() []PushConstantRange {
	return []PushConstantRange{
		{Stages: vk.ShaderStageFlags(vk.ShaderStageVertexBit), Offset: ModelMatrixOffset, Size: ModelMatrixSize},
		{Stages: vk.ShaderStageFlags(vk.ShaderStageFragmentBit), Offset: OpacityOffset, Size: OpacitySize},
	}
}

func EncodeModelMatrix(model mgl32.Mat4) []byte {
	b := make([]byte, ModelMatrixSize)
	putMat4(b, model)
	return b
}

func EncodeOpacity(opacity float32) []byte {
	b := make([]byte, OpacitySize)
	binary.LittleEndian.PutUint32(b, math.Float32bits(opacity))
	return b
}
