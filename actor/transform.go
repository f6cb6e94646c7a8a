package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform is the pose of a body origin in world space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform with the given position and no rotation
func NewTransformAt(position mgl64.Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: mgl64.QuatIdent(),
	}
}

// InverseRotation returns the rotation from world space to local space
func (t Transform) InverseRotation() mgl64.Quat {
	return t.Rotation.Conjugate()
}

// Apply transforms a point from local space to world space
func (t Transform) Apply(point mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(point))
}

// normalized guards against the zero quaternion of an uninitialised Transform
func (t Transform) normalized() Transform {
	t.Rotation = t.Rotation.Normalize()

	return t
}
