package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// VulkanShaderStage is a compiled shader module and the stage info that
// references it.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func NewShaderStage(device vk.Device, code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 {
		return nil, errors.New("empty SPIR-V module")
	}
	info := shaderModuleInfo(code)

	var module vk.ShaderModule
	if err := check("vkCreateShaderModule", vk.CreateShaderModule(device, &info, nil, &module)); err != nil {
		return nil, err
	}

	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

// shaderModuleInfo describes code for vkCreateShaderModule. CodeSize is in bytes.
func shaderModuleInfo(code []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
}

func (s *VulkanShaderStage) Destroy(device vk.Device) {
	if s.Handle != nil {
		vk.DestroyShaderModule(device, s.Handle, nil)
		s.Handle = nil
	}
}
