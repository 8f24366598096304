package math

import "github.com/go-gl/mathgl/mgl32"

// Transform is a position, rotation and scale that resolve to a model matrix.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func TransformCreate() Transform {
	return Transform{
		Position: mgl32.Vec3{},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func TransformFromPosition(position mgl32.Vec3) Transform {
	t := TransformCreate()
	t.Position = position
	return t
}

func TransformFromPositionRotation(position mgl32.Vec3, rotation mgl32.Quat) Transform {
	t := TransformCreate()
	t.Position = position
	t.Rotation = rotation
	return t
}

// Local returns translation * rotation * scale.
func (t Transform) Local() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rot := t.Rotation.Mat4()
	sc := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return tr.Mul4(rot).Mul4(sc)
}
