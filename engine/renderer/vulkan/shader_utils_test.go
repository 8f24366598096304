package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestShaderModuleInfo(t *testing.T) {
	code := []uint32{0x07230203, 0x00010000, 0, 1, 0}
	info := shaderModuleInfo(code)
	if info.SType != vk.StructureTypeShaderModuleCreateInfo {
		t.Errorf("sType = %v", info.SType)
	}
	if info.CodeSize != uint64(4*len(code)) {
		t.Errorf("code size = %d bytes, want %d", info.CodeSize, 4*len(code))
	}
	if len(info.PCode) != len(code) || info.PCode[0] != code[0] {
		t.Errorf("code = %v", info.PCode)
	}
}

func TestNewShaderStageRejectsEmptyCode(t *testing.T) {
	if _, err := NewShaderStage(nil, nil, vk.ShaderStageVertexBit); err == nil {
		t.Fatal("expected an error for empty SPIR-V")
	}
}
