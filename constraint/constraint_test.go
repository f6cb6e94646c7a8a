package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-9

func createSphere(position mgl64.Vec3, mass float64) *actor.RigidBody {
	return actor.NewRigidBody(actor.NewTransformAt(position), &actor.Sphere{Radius: 0.5}, actor.BodyTypeDynamic, mass)
}

func createGround() *actor.RigidBody {
	return actor.NewRigidBody(
		actor.NewTransformAt(mgl64.Vec3{0, -0.5, 0}),
		actor.NewBox(mgl64.Vec3{5, 0.5, 5}),
		actor.BodyTypeStatic,
		0,
	)
}

func quatToVec4(q mgl64.Quat) mgl64.Vec4 {
	return mgl64.Vec4{q.W, q.V.X(), q.V.Y(), q.V.Z()}
}

func vec3ApproxEqual(a, b mgl64.Vec3, tolerance float64) bool {
	return a.Sub(b).Len() < tolerance
}

// ============================================================================
// Materials
// ============================================================================

func TestComputeFriction(t *testing.T) {
	tests := []struct {
		name     string
		matA     actor.Material
		matB     actor.Material
		expected float64
	}{
		{"both zero", actor.Material{Friction: 0}, actor.Material{Friction: 0}, 0},
		{"one zero", actor.Material{Friction: 0}, actor.Material{Friction: 0.8}, 0},
		{"both half", actor.Material{Friction: 0.5}, actor.Material{Friction: 0.5}, 0.25},
		{"full grip", actor.Material{Friction: 1}, actor.Material{Friction: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeFriction(tt.matA, tt.matB)
			if math.Abs(result-tt.expected) > epsilon {
				t.Errorf("ComputeFriction() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestComputeElasticity(t *testing.T) {
	tests := []struct {
		name     string
		matA     actor.Material
		matB     actor.Material
		expected float64
	}{
		{"both zero", actor.Material{Elasticity: 0}, actor.Material{Elasticity: 0}, 0},
		{"perfect bounce needs both", actor.Material{Elasticity: 1}, actor.Material{Elasticity: 0.5}, 0.5},
		{"both perfect", actor.Material{Elasticity: 1}, actor.Material{Elasticity: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeElasticity(tt.matA, tt.matB)
			if math.Abs(result-tt.expected) > epsilon {
				t.Errorf("ComputeElasticity() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// ============================================================================
// Solver helpers
// ============================================================================

func TestLcpGaussSeidel(t *testing.T) {
	tests := []struct {
		name      string
		rows      [][]float64
		rhs       []float64
		expected  []float64
		tolerance float64
	}{
		{
			name:      "single row is exact",
			rows:      [][]float64{{2}},
			rhs:       []float64{3},
			expected:  []float64{1.5},
			tolerance: epsilon,
		},
		{
			name:      "diagonal system is exact",
			rows:      [][]float64{{2, 0, 0}, {0, 4, 0}, {0, 0, 0.5}},
			rhs:       []float64{1, 2, 3},
			expected:  []float64{0.5, 0.5, 6},
			tolerance: epsilon,
		},
		{
			name:      "coupled system converges",
			rows:      [][]float64{{4, 1}, {1, 3}},
			rhs:       []float64{1, 2},
			expected:  []float64{1.0 / 11, 7.0 / 11},
			tolerance: 0.02,
		},
		{
			name:      "degenerate row is skipped",
			rows:      [][]float64{{0, 0}, {0, 2}},
			rhs:       []float64{1, 4},
			expected:  []float64{0, 2},
			tolerance: epsilon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.rhs)
			lhs := newMatrix(n, n)
			for i, row := range tt.rows {
				for j, value := range row {
					lhs.Set(i, j, value)
				}
			}

			x := lcpGaussSeidel(lhs, mgl64.NewVecNFromData(tt.rhs))
			for i, expected := range tt.expected {
				if math.Abs(x.Get(i)-expected) > tt.tolerance {
					t.Errorf("Expected x[%d] = %v, got %v", i, expected, x.Get(i))
				}
			}
		})
	}
}

func TestOrthonormalBasis(t *testing.T) {
	normals := []mgl64.Vec3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0, 0, -1},
		{1, 2, 3},
		{-0.3, 0.1, 0.95},
	}

	for _, n := range normals {
		u, v := orthonormalBasis(n)
		n = n.Normalize()

		if math.Abs(u.Len()-1) > epsilon || math.Abs(v.Len()-1) > epsilon {
			t.Errorf("Expected unit vectors for %v, got |u| = %v, |v| = %v", n, u.Len(), v.Len())
		}
		if math.Abs(u.Dot(n)) > epsilon || math.Abs(v.Dot(n)) > epsilon || math.Abs(u.Dot(v)) > epsilon {
			t.Errorf("Expected an orthogonal basis for %v, got u = %v, v = %v", n, u, v)
		}
	}
}

func TestClampCachedLambda(t *testing.T) {
	lambda := mgl64.NewVecNFromData([]float64{math.NaN(), 2e5, -3e5, 12, math.Inf(1)})
	clampCachedLambda(lambda, 1e5)

	expected := []float64{0, 1e5, -1e5, 12, 0}
	for i, value := range expected {
		if lambda.Get(i) != value {
			t.Errorf("Expected lambda[%d] = %v, got %v", i, value, lambda.Get(i))
		}
	}
}

func TestApplyLambda(t *testing.T) {
	a := createSphere(mgl64.Vec3{0, 0, 0}, 2)
	b := createSphere(mgl64.Vec3{2, 0, 0}, 1)

	jacobian := newMatrix(1, bodyPairDOF)
	setRow(jacobian, 0, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{})
	applyLambda(a, b, jacobian, mgl64.NewVecNFromData([]float64{2}))

	if !vec3ApproxEqual(a.LinearVelocity, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("Expected velocity A (-1, 0, 0), got %v", a.LinearVelocity)
	}
	if !vec3ApproxEqual(b.LinearVelocity, mgl64.Vec3{2, 0, 0}, 1e-9) {
		t.Errorf("Expected velocity B (2, 0, 0), got %v", b.LinearVelocity)
	}
}

// ============================================================================
// Quaternion matrices
// ============================================================================

func TestQuaternionMatrices(t *testing.T) {
	q := mgl64.QuatRotate(0.7, mgl64.Vec3{1, 2, 3}.Normalize())
	p := mgl64.QuatRotate(1.1, mgl64.Vec3{0, 1, 1}.Normalize())

	t.Run("left matrix", func(t *testing.T) {
		result := leftMatrix(q).Mul4x1(quatToVec4(p))
		expected := quatToVec4(q.Mul(p))
		if result.Sub(expected).Len() > epsilon {
			t.Errorf("Expected L(q)·p = %v, got %v", expected, result)
		}
	})

	t.Run("right matrix", func(t *testing.T) {
		result := rightMatrix(q).Mul4x1(quatToVec4(p))
		expected := quatToVec4(p.Mul(q))
		if result.Sub(expected).Len() > epsilon {
			t.Errorf("Expected R(q)·p = %v, got %v", expected, result)
		}
	})
}

func TestRelativeOrientation_Drift(t *testing.T) {
	qa := mgl64.QuatRotate(0.4, mgl64.Vec3{0, 1, 0})
	qb := mgl64.QuatRotate(-1.2, mgl64.Vec3{1, 0, 0})
	orientation := newRelativeOrientation(qa, qb)

	t.Run("identity while unchanged", func(t *testing.T) {
		drift := orientation.drift(qa, qb)
		if math.Abs(drift.W-1) > epsilon || drift.V.Len() > epsilon {
			t.Errorf("Expected identity drift, got %v", drift)
		}
	})

	t.Run("both bodies rotated together", func(t *testing.T) {
		turn := mgl64.QuatRotate(2.5, mgl64.Vec3{1, 1, 0}.Normalize())
		drift := orientation.drift(turn.Mul(qa), turn.Mul(qb))
		if math.Abs(drift.W-1) > epsilon || drift.V.Len() > epsilon {
			t.Errorf("Expected identity drift, got %v", drift)
		}
	})

	t.Run("B rotated alone", func(t *testing.T) {
		drift := orientation.drift(qa, mgl64.QuatRotate(0.2, mgl64.Vec3{0, 0, 1}).Mul(qb))
		if drift.W < 0 {
			t.Errorf("Expected a positive scalar part, got %v", drift.W)
		}
		if drift.V.Len() < 0.09 {
			t.Errorf("Expected a drift of about sin(0.1), got %v", drift.V.Len())
		}
	})
}

// ============================================================================
// Config
// ============================================================================

func TestNewJointConfig(t *testing.T) {
	arena := actor.NewArena()
	a := createSphere(mgl64.Vec3{0, 0, 0}, 1)
	b := createSphere(mgl64.Vec3{2, 0, 0}, 1)
	b.Transform.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	arena.Insert(a)
	arena.Insert(b)

	config := NewJointConfig(a, b, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})

	if ha, hb := config.Bodies(); ha != a.Handle() || hb != b.Handle() {
		t.Errorf("Expected handles %v and %v, got %v and %v", a.Handle(), b.Handle(), ha, hb)
	}

	anchors := config.anchors(a, b)
	if !vec3ApproxEqual(anchors.worldA, mgl64.Vec3{1, 0, 0}, 1e-9) || !vec3ApproxEqual(anchors.worldB, mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("Expected both anchors at (1, 0, 0), got %v and %v", anchors.worldA, anchors.worldB)
	}
	if !vec3ApproxEqual(anchors.rb, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("Expected rb (-1, 0, 0), got %v", anchors.rb)
	}
	if !vec3ApproxEqual(b.Transform.Rotation.Rotate(config.AxisB), mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("Expected axis B to map back to (0, 1, 0), got %v", b.Transform.Rotation.Rotate(config.AxisB))
	}
}
