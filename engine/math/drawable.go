package math

import "github.com/go-gl/mathgl/mgl32"

// DegreesPerSecond is the spin rate of every drawable about the Z axis.
const DegreesPerSecond float32 = 90

// Drawable is one instance of the shared mesh. Its transform and opacity are pushed
// per draw and never stored on the GPU.
type Drawable struct {
	Index   uint32
	Offset  mgl32.Vec3
	Opacity float32
}

// NewDrawable lays instances out in pairs along Y, stepping back along Z every two.
func NewDrawable(index uint32) Drawable {
	return Drawable{
		Index: index,
		Offset: mgl32.Vec3{
			0,
			float32(index%2)*2.5 - 1.25,
			-2*float32(index/2) + 1,
		},
		Opacity: float32(index+1) * 0.25,
	}
}

// Angle returns the rotation in degrees after elapsed seconds.
func (d Drawable) Angle(elapsed float32) float32 {
	return DegreesPerSecond * elapsed
}

// Transform places the drawable at its offset, rotated about Z for the elapsed time.
func (d Drawable) Transform(elapsed float32) Transform {
	rot := mgl32.QuatRotate(mgl32.DegToRad(d.Angle(elapsed)), mgl32.Vec3{0, 0, 1})
	return TransformFromPositionRotation(d.Offset, rot)
}

// Model is the model matrix pushed to the vertex stage.
func (d Drawable) Model(elapsed float32) mgl32.Mat4 {
	return d.Transform(elapsed).Local()
}

// Drawables returns count instances with indices 0..count-1.
func Drawables(count uint32) []Drawable {
	out := make([]Drawable, count)
	for i := range out {
		out[i] = NewDrawable(uint32(i))
	}
	return out
}
