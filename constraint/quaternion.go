package constraint

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Quaternions are mapped to Vec4 as (w, x, y, z)

// leftMatrix returns L(q), with L(q)·p = q*p
func leftMatrix(q mgl64.Quat) mgl64.Mat4 {
	w, x, y, z := q.W, q.V.X(), q.V.Y(), q.V.Z()

	return mgl64.Mat4FromRows(
		mgl64.Vec4{w, -x, -y, -z},
		mgl64.Vec4{x, w, -z, y},
		mgl64.Vec4{y, z, w, -x},
		mgl64.Vec4{z, -y, x, w},
	)
}

// rightMatrix returns R(q), with R(q)·p = p*q
func rightMatrix(q mgl64.Quat) mgl64.Mat4 {
	w, x, y, z := q.W, q.V.X(), q.V.Y(), q.V.Z()

	return mgl64.Mat4FromRows(
		mgl64.Vec4{w, -x, -y, -z},
		mgl64.Vec4{x, w, z, -y},
		mgl64.Vec4{y, -z, w, x},
		mgl64.Vec4{z, y, -x, w},
	)
}

// projection drops the scalar part of a quaternion
var projection = mgl64.Mat4FromRows(
	mgl64.Vec4{0, 0, 0, 0},
	mgl64.Vec4{0, 1, 0, 0},
	mgl64.Vec4{0, 0, 1, 0},
	mgl64.Vec4{0, 0, 0, 1},
)

// relativeOrientation tracks the orientation of B relative to A against the one captured
// when the joint was created.
type relativeOrientation struct {
	q0 mgl64.Quat
}

func newRelativeOrientation(qa, qb mgl64.Quat) relativeOrientation {
	return relativeOrientation{q0: qa.Inverse().Mul(qb)}
}

// drift returns q1⁻¹·q2·q0⁻¹, the identity while the joint holds, in the hemisphere of a
// positive scalar part
func (r relativeOrientation) drift(qa, qb mgl64.Quat) mgl64.Quat {
	q := qa.Inverse().Mul(qb).Mul(r.q0.Inverse())
	if q.W < 0 {
		q = mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	}

	return q
}

// angularRows maps the world angular velocity of each body to the rate of change of the
// relative orientation error along a local axis of A.
func (r relativeOrientation) angularRows(qa, qb mgl64.Quat, axis mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	qr := qb.Mul(r.q0.Inverse())
	sign := 1.0
	if qa.Inverse().Mul(qr).W < 0 {
		sign = -1
	}

	mat := projection.Mul4(leftMatrix(qa.Inverse())).Mul4(rightMatrix(qr)).Mul4(projection.Transpose())
	row := mat.Transpose().Mul4x1(mgl64.Vec4{0, axis.X(), axis.Y(), axis.Z()}).Mul(0.5 * sign)

	angularB := mgl64.Vec3{row.Y(), row.Z(), row.W()}
	return angularB.Mul(-1), angularB
}
