package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// bodyPairDOF is the width of every Jacobian: linear and angular velocity of A, then of B
const bodyPairDOF = 12

// newMatrix returns a zeroed m×n matrix. Pooled mgl64 storage is not cleared on allocation.
func newMatrix(m, n int) *mgl64.MatMxN {
	mat := mgl64.NewMatrix(m, n)
	mat.Zero(m, n)

	return mat
}

func newVector(n int) *mgl64.VecN {
	vec := mgl64.NewVecN(n)
	vec.Zero(n)

	return vec
}

// setRow writes the four 3-wide blocks of a Jacobian row
func setRow(jacobian *mgl64.MatMxN, row int, linearA, angularA, linearB, angularB mgl64.Vec3) {
	for i, block := range [4]mgl64.Vec3{linearA, angularA, linearB, angularB} {
		for j := 0; j < 3; j++ {
			jacobian.Set(row, i*3+j, block[j])
		}
	}
}

// inverseMassMatrix is the 12×12 block diagonal of both bodies' inverse mass and world
// inverse inertia
func inverseMassMatrix(a, b *actor.RigidBody) *mgl64.MatMxN {
	mat := newMatrix(bodyPairDOF, bodyPairDOF)

	for i, body := range [2]*actor.RigidBody{a, b} {
		offset := i * 6
		for j := 0; j < 3; j++ {
			mat.Set(offset+j, offset+j, body.InvMass)
		}

		inertia := body.InverseInertiaWorld()
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				mat.Set(offset+3+row, offset+3+col, inertia.At(row, col))
			}
		}
	}

	return mat
}

// velocities stacks both bodies' linear and angular velocities
func velocities(a, b *actor.RigidBody) *mgl64.VecN {
	return mgl64.NewVecNFromData([]float64{
		a.LinearVelocity[0], a.LinearVelocity[1], a.LinearVelocity[2],
		a.AngularVelocity[0], a.AngularVelocity[1], a.AngularVelocity[2],
		b.LinearVelocity[0], b.LinearVelocity[1], b.LinearVelocity[2],
		b.AngularVelocity[0], b.AngularVelocity[1], b.AngularVelocity[2],
	})
}

func block(vec *mgl64.VecN, offset int) mgl64.Vec3 {
	return mgl64.Vec3{vec.Get(offset), vec.Get(offset + 1), vec.Get(offset + 2)}
}

// applyImpulses applies a 12-wide generalized impulse, Jᵀ·λ
func applyImpulses(a, b *actor.RigidBody, impulses *mgl64.VecN) {
	a.ApplyImpulseLinear(block(impulses, 0))
	a.ApplyImpulseAngular(block(impulses, 3))
	b.ApplyImpulseLinear(block(impulses, 6))
	b.ApplyImpulseAngular(block(impulses, 9))
}

// applyLambda applies Jᵀ·λ to both bodies
func applyLambda(a, b *actor.RigidBody, jacobian *mgl64.MatMxN, lambda *mgl64.VecN) {
	impulses := jacobian.Transpose(nil).MulNx1(nil, lambda)
	applyImpulses(a, b, impulses)
}

// solveRows computes the impulse correcting J·v toward -bias, bias holding one value per row
func solveRows(a, b *actor.RigidBody, jacobian *mgl64.MatMxN, bias []float64) *mgl64.VecN {
	return solveRowsWithTarget(a, b, jacobian, bias, nil)
}

// solveRowsWithTarget is solveRows for a velocity target other than rest
func solveRowsWithTarget(a, b *actor.RigidBody, jacobian *mgl64.MatMxN, bias []float64, target *mgl64.VecN) *mgl64.VecN {
	transposed := jacobian.Transpose(nil)

	// A = J·W·Jᵀ
	lhs := jacobian.MulMxN(nil, inverseMassMatrix(a, b)).MulMxN(nil, transposed)

	q := velocities(a, b)
	if target != nil {
		q = q.Sub(q, target)
	}

	// rhs = -J·q - bias
	rhs := jacobian.MulNx1(nil, q)
	rhs.Mul(rhs, -1)
	for i, value := range bias {
		rhs.Set(i, rhs.Get(i)-value)
	}

	return lcpGaussSeidel(lhs, rhs)
}

// lcpGaussSeidel solves A·x = b by successive substitution, one sweep per row.
// Updates that are not finite, as for rows of a degenerate Jacobian, are skipped.
func lcpGaussSeidel(lhs *mgl64.MatMxN, rhs *mgl64.VecN) *mgl64.VecN {
	n := rhs.Size()
	x := newVector(n)

	for iteration := 0; iteration < n; iteration++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += lhs.At(i, j) * x.Get(j)
			}

			dx := (rhs.Get(i) - sum) / lhs.At(i, i)
			if !math.IsNaN(dx) && !math.IsInf(dx, 0) {
				x.Set(i, x.Get(i)+dx)
			}
		}
	}

	return x
}

// orthonormalBasis returns two unit vectors orthogonal to n and to each other
func orthonormalBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	n = n.Normalize()

	w := mgl64.Vec3{0, 0, 1}
	if n.Z()*n.Z() > 0.9*0.9 {
		w = mgl64.Vec3{1, 0, 0}
	}

	u := w.Cross(n).Normalize()
	v := n.Cross(u).Normalize()
	u = v.Cross(n).Normalize()

	return u, v
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
