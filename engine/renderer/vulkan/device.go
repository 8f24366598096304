package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendercore/engine/core"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

// CreateInstance creates the Vulkan instance with the window system's
// extensions. With validation on, the Khronos layer must be present and a
// debug report callback forwards its messages to the engine log.
func CreateInstance(appName string, extensions []string, validation bool) (*InstanceContext, error) {
	ic := &InstanceContext{}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("RenderCore"),
	}

	requiredExtensions := append([]string{}, extensions...)
	var flags vk.InstanceCreateFlags
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		flags |= 1
	}

	var layers []string
	if validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if err := requireLayer(validationLayer); err != nil {
			return nil, err
		}
		layers = []string{validationLayer}
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		Flags:                   flags,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}

	var instance vk.Instance
	if err := check("vkCreateInstance", vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "init instance")
	}
	ic.Instance = instance
	ic.release.push(func() { vk.DestroyInstance(instance, nil) })
	core.LogInfo("Vulkan Instance created.")

	if validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := check("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg)); err != nil {
			ic.release.release()
			return nil, err
		}
		ic.debugCallback = dbg
		ic.release.push(func() { vk.DestroyDebugReportCallback(instance, dbg, nil) })
		core.LogDebug("Vulkan debugger created.")
	}
	return ic, nil
}

// AttachSurface hands ownership of a window surface to the instance tier.
func (ic *InstanceContext) AttachSurface(surface vk.Surface) {
	ic.Surface = surface
	instance := ic.Instance
	ic.release.push(func() { vk.DestroySurface(instance, surface, nil) })
}

// Destroy releases the surface, debug callback and instance.
func (ic *InstanceContext) Destroy() {
	ic.release.release()
	ic.Surface = nil
	ic.Instance = nil
}

func requireLayer(name string) error {
	var count uint32
	if err := check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return err
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].LayerName[:]) == name {
			return nil
		}
	}
	return errors.Wrapf(core.ErrMissingExtension, "validation layer %s", name)
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

type queueFamilies struct {
	graphics, present       uint32
	hasGraphics, hasPresent bool
}

// CreateDevice picks the first physical device with graphics and present
// queues, swapchain support and a depth format, then creates the logical
// device and everything the render core shares across swapchains.
func CreateDevice(ic *InstanceContext) (*DeviceContext, error) {
	var count uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(ic.Instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(ic.Instance, &count, physicalDevices)); err != nil {
		return nil, err
	}

	dc := &DeviceContext{Locks: NewQueueLocks()}
	var families queueFamilies
	for _, pd := range physicalDevices {
		f, ok := deviceMeetsRequirements(pd, ic.Surface)
		if !ok {
			continue
		}
		depth, ok := detectDepthFormat(pd)
		if !ok {
			core.LogInfo("Device has no depth attachment format, skipping.")
			continue
		}
		dc.PhysicalDevice = pd
		dc.DepthFormat = depth
		families = f
		break
	}
	if dc.PhysicalDevice == nil {
		return nil, errors.Wrap(core.ErrNoSuitableDevice, "no physical devices were found which meet the requirements")
	}

	vk.GetPhysicalDeviceProperties(dc.PhysicalDevice, &dc.Properties)
	dc.Properties.Deref()
	dc.Properties.Limits.Deref()
	dc.MsaaSamples = maxUsableSampleCount(dc.Properties.Limits)
	dc.GraphicsQueueIndex = families.graphics
	dc.PresentQueueIndex = families.present
	logDeviceProperties(dc.Properties)

	indices := []uint32{families.graphics}
	if families.present != families.graphics {
		indices = append(indices, families.present)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(dc.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if err := check("vkCreateDevice", vk.CreateDevice(dc.PhysicalDevice, &deviceCreateInfo, nil, &device)); err != nil {
		return nil, err
	}
	dc.Device = device
	dc.release.push(func() { vk.DestroyDevice(device, nil) })
	dc.Driver = NewDriver(dc.PhysicalDevice, device)
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, families.graphics, 0, &graphicsQueue)
	vk.GetDeviceQueue(device, families.present, 0, &presentQueue)
	dc.GraphicsQueue = graphicsQueue
	dc.PresentQueue = presentQueue

	layout, err := createDescriptorSetLayout(device)
	if err != nil {
		dc.Destroy()
		return nil, err
	}
	dc.DescriptorSetLayout = layout
	dc.release.push(func() { vk.DestroyDescriptorSetLayout(device, layout, nil) })

	return dc, nil
}

// Destroy releases the descriptor set layout and the logical device. Every
// swapchain and render core built on the context must be gone by then.
func (c *DeviceContext) Destroy() {
	core.LogInfo("Destroying logical device...")
	c.release.release()
	c.GraphicsQueue = nil
	c.PresentQueue = nil
	c.Device = nil
	c.PhysicalDevice = nil
}

// createDescriptorSetLayout declares the camera uniform at binding 0.
func createDescriptorSetLayout(device vk.Device) (vk.DescriptorSetLayout, error) {
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		}},
	}
	var layout vk.DescriptorSetLayout
	if err := check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &info, nil, &layout)); err != nil {
		return nil, err
	}
	return layout, nil
}

func deviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface) (queueFamilies, bool) {
	var f queueFamilies

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	for i := range props {
		props[i].Deref()
		if !f.hasGraphics && vk.QueueFlagBits(props[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			f.graphics = uint32(i)
			f.hasGraphics = true
		}
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return f, false
		}
		if !f.hasPresent && supportsPresent == vk.True {
			f.present = uint32(i)
			f.hasPresent = true
		}
	}
	if !f.hasGraphics || !f.hasPresent {
		core.LogInfo("Device lacks a graphics or present queue, skipping.")
		return f, false
	}
	if !hasDeviceExtension(device, vk.KhrSwapchainExtensionName) {
		core.LogInfo("Required extension not found: '%s', skipping device.", vk.KhrSwapchainExtensionName)
		return f, false
	}

	var formatCount, modeCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil)
	vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &modeCount, nil)
	if formatCount == 0 || modeCount == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return f, false
	}
	return f, true
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(device, "", &count, nil) != vk.Success {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(device, "", &count, available) != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func detectDepthFormat(device vk.PhysicalDevice) (vk.Format, bool) {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			return candidate, true
		}
	}
	return vk.FormatUndefined, false
}

// maxUsableSampleCount is the highest count both color and depth
// framebuffers support.
func maxUsableSampleCount(limits vk.PhysicalDeviceLimits) vk.SampleCountFlagBits {
	counts := limits.FramebufferColorSampleCounts & limits.FramebufferDepthSampleCounts
	for _, bit := range []vk.SampleCountFlagBits{
		vk.SampleCount64Bit,
		vk.SampleCount32Bit,
		vk.SampleCount16Bit,
		vk.SampleCount8Bit,
		vk.SampleCount4Bit,
		vk.SampleCount2Bit,
	} {
		if counts&vk.SampleCountFlags(bit) != 0 {
			return bit
		}
	}
	return vk.SampleCount1Bit
}

func logDeviceProperties(properties vk.PhysicalDeviceProperties) {
	core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)
}
