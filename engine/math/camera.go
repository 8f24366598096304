package math

import "github.com/go-gl/mathgl/mgl32"

var (
	CameraEye    = mgl32.Vec3{6, 0, 2}
	CameraCenter = mgl32.Vec3{0, 0, 0}
	CameraUp     = mgl32.Vec3{0, 0, 1}
)

const (
	FieldOfView float32 = 45
	NearPlane   float32 = 0.1
	FarPlane    float32 = 10
)

// Correction flips Y and maps the OpenGL depth range [-1,1] to Vulkan's [0,1].
var Correction = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// View is the fixed camera looking at the origin.
func View() mgl32.Mat4 {
	return mgl32.LookAtV(CameraEye, CameraCenter, CameraUp)
}

// Projection builds the perspective matrix for a width/height viewport.
func Projection(width, height uint32) mgl32.Mat4 {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	return Correction.Mul4(mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, NearPlane, FarPlane))
}
