package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestViewLooksAtOrigin(t *testing.T) {
	eye := View().Mul4x1(CameraEye.Vec4(1))
	if want := (mgl32.Vec4{0, 0, 0, 1}); !allWithin(eye[:], want[:], eps) {
		t.Fatalf("eye in view space = %v, want origin", eye)
	}
	center := View().Mul4x1(CameraCenter.Vec4(1))
	if !within(center.X(), 0, eps) || !within(center.Y(), 0, eps) {
		t.Fatalf("center off axis: %v", center)
	}
	if center.Z() >= 0 {
		t.Fatalf("center behind the camera: %v", center)
	}
}

func TestProjectionDepthRange(t *testing.T) {
	proj := Projection(800, 600)

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -NearPlane, 1})
	if z := near.Z() / near.W(); !within(z, 0, 1e-4) {
		t.Errorf("near plane depth = %f, want 0", z)
	}
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -FarPlane, 1})
	if z := far.Z() / far.W(); !within(z, 1, 1e-4) {
		t.Errorf("far plane depth = %f, want 1", z)
	}

	up := proj.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	if up.Y() >= 0 {
		t.Errorf("y was not flipped: %v", up)
	}
}

func TestProjectionAspect(t *testing.T) {
	wide := Projection(1600, 800)
	square := Projection(800, 800)
	if !within(wide.At(0, 0)*2, square.At(0, 0), eps) {
		t.Fatalf("x scale %f does not follow aspect (square %f)", wide.At(0, 0), square.At(0, 0))
	}
	// A zero height must not divide by zero.
	if m := Projection(800, 0); m.At(0, 0) != square.At(0, 0) {
		t.Fatalf("zero height projection = %v", m)
	}
}
