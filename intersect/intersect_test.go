package intersect

import (
	"math"
	"testing"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

func createSphere(position mgl64.Vec3, radius float64) *actor.RigidBody {
	return actor.NewRigidBody(actor.NewTransformAt(position), &actor.Sphere{Radius: radius}, actor.BodyTypeDynamic, 1)
}

func createBox(position, halfExtents mgl64.Vec3, bodyType actor.BodyType) *actor.RigidBody {
	return actor.NewRigidBody(actor.NewTransformAt(position), actor.NewBox(halfExtents), bodyType, 1)
}

// insert gives the bodies distinct handles
func insert(bodies ...*actor.RigidBody) {
	arena := actor.NewArena()
	for _, body := range bodies {
		arena.Insert(body)
	}
}

func vec3ApproxEqual(a, b mgl64.Vec3, tolerance float64) bool {
	return a.Sub(b).Len() < tolerance
}

// =============================================================================
// Analytic routines
// =============================================================================

func TestRaySphere(t *testing.T) {
	tests := []struct {
		name      string
		start     mgl64.Vec3
		direction mgl64.Vec3
		wantHit   bool
		wantT1    float64
		wantT2    float64
	}{
		{"through the center", mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{1, 0, 0}, true, 4, 6},
		{"scaled direction", mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{2, 0, 0}, true, 2, 3},
		{"from inside", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, true, -1, 1},
		{"pointing away", mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{-1, 0, 0}, true, -6, -4},
		{"missing", mgl64.Vec3{-5, 2, 0}, mgl64.Vec3{1, 0, 0}, false, 0, 0},
		{"zero direction", mgl64.Vec3{-5, 0, 0}, mgl64.Vec3{}, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t1, t2, hit := RaySphere(tt.start, tt.direction, mgl64.Vec3{}, 1)
			if hit != tt.wantHit {
				t.Fatalf("Expected hit %v, got %v", tt.wantHit, hit)
			}
			if math.Abs(t1-tt.wantT1) > 1e-12 || math.Abs(t2-tt.wantT2) > 1e-12 {
				t.Errorf("Expected t1 = %v, t2 = %v, got %v, %v", tt.wantT1, tt.wantT2, t1, t2)
			}
		})
	}
}

func TestSphereSphereStatic(t *testing.T) {
	t.Run("overlapping", func(t *testing.T) {
		onA, onB, ok := SphereSphereStatic(1, 1, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
		if !ok {
			t.Fatalf("Expected an overlap")
		}
		if !vec3ApproxEqual(onA, mgl64.Vec3{1, 0, 0}, 1e-12) || !vec3ApproxEqual(onB, mgl64.Vec3{0, 0, 0}, 1e-12) {
			t.Errorf("Expected points (1, 0, 0) and (0, 0, 0), got %v and %v", onA, onB)
		}
	})

	t.Run("touching is not overlapping", func(t *testing.T) {
		if _, _, ok := SphereSphereStatic(1, 1, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}); ok {
			t.Errorf("Expected no overlap")
		}
	})

	t.Run("concentric", func(t *testing.T) {
		onA, onB, ok := SphereSphereStatic(1, 0.5, mgl64.Vec3{}, mgl64.Vec3{})
		if !ok {
			t.Fatalf("Expected an overlap")
		}
		if math.IsNaN(onA.X()) || math.IsNaN(onB.X()) {
			t.Errorf("Expected finite points, got %v and %v", onA, onB)
		}
	})
}

func TestSphereSphereDynamic(t *testing.T) {
	tests := []struct {
		name    string
		posA    mgl64.Vec3
		velA    mgl64.Vec3
		dt      float64
		wantHit bool
		wantTOI float64
		wantOnA mgl64.Vec3
		wantOnB mgl64.Vec3
	}{
		{
			name:    "fast approach",
			posA:    mgl64.Vec3{-5, 0, 0},
			velA:    mgl64.Vec3{100, 0, 0},
			dt:      0.1,
			wantHit: true,
			wantTOI: 0.04,
			wantOnA: mgl64.Vec3{-0.5, 0, 0},
			wantOnB: mgl64.Vec3{-0.5, 0, 0},
		},
		{
			name:    "receding",
			posA:    mgl64.Vec3{-5, 0, 0},
			velA:    mgl64.Vec3{-100, 0, 0},
			dt:      0.1,
			wantHit: false,
		},
		{
			name:    "impact after dt",
			posA:    mgl64.Vec3{-5, 0, 0},
			velA:    mgl64.Vec3{100, 0, 0},
			dt:      0.01,
			wantHit: false,
		},
		{
			name:    "passing by",
			posA:    mgl64.Vec3{-5, 2, 0},
			velA:    mgl64.Vec3{100, 0, 0},
			dt:      0.1,
			wantHit: false,
		},
		{
			name:    "still and overlapping",
			posA:    mgl64.Vec3{-0.9, 0, 0},
			dt:      0.1,
			wantHit: true,
			wantTOI: 0,
			wantOnA: mgl64.Vec3{-0.4, 0, 0},
			wantOnB: mgl64.Vec3{-0.5, 0, 0},
		},
		{
			name:    "still within epsilon",
			posA:    mgl64.Vec3{-1.0005, 0, 0},
			dt:      0.1,
			wantHit: true,
			wantTOI: 0,
			wantOnA: mgl64.Vec3{-0.5005, 0, 0},
			wantOnB: mgl64.Vec3{-0.5, 0, 0},
		},
		{
			name:    "still and apart",
			posA:    mgl64.Vec3{-3, 0, 0},
			dt:      0.1,
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onA, onB, toi, hit := SphereSphereDynamic(0.5, 0.5, tt.posA, mgl64.Vec3{}, tt.velA, mgl64.Vec3{}, tt.dt)
			if hit != tt.wantHit {
				t.Fatalf("Expected hit %v, got %v", tt.wantHit, hit)
			}
			if !hit {
				return
			}

			if math.Abs(toi-tt.wantTOI) > 1e-12 {
				t.Errorf("Expected time of impact %v, got %v", tt.wantTOI, toi)
			}
			if !vec3ApproxEqual(onA, tt.wantOnA, 1e-12) || !vec3ApproxEqual(onB, tt.wantOnB, 1e-12) {
				t.Errorf("Expected points %v and %v, got %v and %v", tt.wantOnA, tt.wantOnB, onA, onB)
			}
		})
	}
}

// =============================================================================
// Static
// =============================================================================

func TestStatic_Spheres(t *testing.T) {
	t.Run("overlapping", func(t *testing.T) {
		a := createSphere(mgl64.Vec3{0, 0, 0}, 1)
		b := createSphere(mgl64.Vec3{1, 0, 0}, 1)
		insert(a, b)

		contact, hit, err := Static(a, b)
		if err != nil || !hit {
			t.Fatalf("Expected a contact, got hit %v, err %v", hit, err)
		}
		if contact.BodyA != a.Handle() || contact.BodyB != b.Handle() {
			t.Errorf("Expected the contact to keep the pair order")
		}
		if !vec3ApproxEqual(contact.Normal, mgl64.Vec3{-1, 0, 0}, 1e-12) {
			t.Errorf("Expected normal from B to A (-1, 0, 0), got %v", contact.Normal)
		}
		if math.Abs(contact.Separation+1) > 1e-12 {
			t.Errorf("Expected separation -1, got %v", contact.Separation)
		}
		if !vec3ApproxEqual(contact.LocalPointA, mgl64.Vec3{1, 0, 0}, 1e-12) || !vec3ApproxEqual(contact.LocalPointB, mgl64.Vec3{-1, 0, 0}, 1e-12) {
			t.Errorf("Expected local points (1, 0, 0) and (-1, 0, 0), got %v and %v", contact.LocalPointA, contact.LocalPointB)
		}
		if contact.TimeOfImpact != 0 {
			t.Errorf("Expected no time of impact, got %v", contact.TimeOfImpact)
		}
	})

	t.Run("separated", func(t *testing.T) {
		a := createSphere(mgl64.Vec3{0, 0, 0}, 1)
		b := createSphere(mgl64.Vec3{3, 0, 0}, 1)
		insert(a, b)

		contact, hit, err := Static(a, b)
		if err != nil || hit {
			t.Fatalf("Expected no contact, got hit %v, err %v", hit, err)
		}
		if math.Abs(contact.Separation-1) > 1e-6 {
			t.Errorf("Expected separation 1, got %v", contact.Separation)
		}
	})
}

func TestStatic_Boxes(t *testing.T) {
	tests := []struct {
		name           string
		position       mgl64.Vec3
		wantHit        bool
		wantNormal     mgl64.Vec3
		wantSeparation float64
	}{
		{"stacked with overlap", mgl64.Vec3{0, 1.8, 0}, true, mgl64.Vec3{0, 1, 0}, -0.2},
		{"side overlap", mgl64.Vec3{-1.5, 0, 0}, true, mgl64.Vec3{-1, 0, 0}, -0.5},
		{"resting", mgl64.Vec3{0, 2, 0}, true, mgl64.Vec3{0, 1, 0}, 0},
		{"above", mgl64.Vec3{0, 3, 0}, false, mgl64.Vec3{0, 1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := createBox(tt.position, mgl64.Vec3{1, 1, 1}, actor.BodyTypeDynamic)
			b := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
			insert(a, b)

			contact, hit, err := Static(a, b)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if hit != tt.wantHit {
				t.Fatalf("Expected hit %v, got %v", tt.wantHit, hit)
			}
			if !vec3ApproxEqual(contact.Normal, tt.wantNormal, 1e-6) {
				t.Errorf("Expected normal %v, got %v", tt.wantNormal, contact.Normal)
			}
			if math.Abs(contact.Separation-tt.wantSeparation) > 1e-3 {
				t.Errorf("Expected separation %v, got %v", tt.wantSeparation, contact.Separation)
			}
			// A's point lies on A, B's point on B
			if d := contact.WorldPointA.Sub(a.Transform.Position).Dot(tt.wantNormal); math.Abs(d+1) > 1e-3 {
				t.Errorf("Expected the point on A to lie on its face, got %v", contact.WorldPointA)
			}
			if d := contact.WorldPointB.Dot(tt.wantNormal); math.Abs(d-1) > 1e-3 {
				t.Errorf("Expected the point on B to lie on its face, got %v", contact.WorldPointB)
			}
		})
	}
}

func TestSphereBox(t *testing.T) {
	bounds := actor.AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}
	rotated := actor.Transform{Position: mgl64.Vec3{0, 0, 0}, Rotation: mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})}

	tests := []struct {
		name         string
		center       mgl64.Vec3
		transform    actor.Transform
		wantOnBox    mgl64.Vec3
		wantNormal   mgl64.Vec3
		wantDistance float64
		wantInside   bool
	}{
		{"above a face", mgl64.Vec3{0.3, 3, -0.2}, actor.NewTransform(), mgl64.Vec3{0.3, 1, -0.2}, mgl64.Vec3{0, 1, 0}, 2, false},
		{"off a corner", mgl64.Vec3{2, 2, 1}, actor.NewTransform(), mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 0}.Normalize(), math.Sqrt2, false},
		{"translated box", mgl64.Vec3{5, 0, 0}, actor.NewTransformAt(mgl64.Vec3{3, 0, 0}), mgl64.Vec3{4, 0, 0}, mgl64.Vec3{1, 0, 0}, 1, false},
		{"rotated box", mgl64.Vec3{3, 3, 0}, rotated, mgl64.Vec3{1, 1, 0}.Normalize().Mul(1), mgl64.Vec3{1, 1, 0}.Normalize(), 3*math.Sqrt2 - 1, false},
		{"center inside", mgl64.Vec3{0.5, 0, 0}, actor.NewTransform(), mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onBox, normal, distance, inside := SphereBox(tt.center, bounds, tt.transform)

			if inside != tt.wantInside {
				t.Fatalf("Expected inside %v, got %v", tt.wantInside, inside)
			}
			if !vec3ApproxEqual(onBox, tt.wantOnBox, 1e-9) {
				t.Errorf("Expected the closest point %v, got %v", tt.wantOnBox, onBox)
			}
			if !vec3ApproxEqual(normal, tt.wantNormal, 1e-9) {
				t.Errorf("Expected normal %v, got %v", tt.wantNormal, normal)
			}
			if math.Abs(distance-tt.wantDistance) > 1e-9 {
				t.Errorf("Expected distance %v, got %v", tt.wantDistance, distance)
			}
		})
	}
}

func TestStatic_SphereBox(t *testing.T) {
	tests := []struct {
		name           string
		position       mgl64.Vec3
		sphereFirst    bool
		wantHit        bool
		wantSeparation float64
	}{
		{"sinking off-center", mgl64.Vec3{0.37, 1.49, -0.21}, true, true, -0.01},
		{"touching", mgl64.Vec3{0.37, 1.5, -0.21}, true, true, 0},
		{"within the bias", mgl64.Vec3{0, 1.5015, 0}, true, true, 0.0015},
		{"above", mgl64.Vec3{0, 1.6, 0}, true, false, 0.1},
		{"box first", mgl64.Vec3{0.37, 1.49, -0.21}, false, true, -0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sphere := createSphere(tt.position, 0.5)
			box := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
			insert(sphere, box)

			a, b := sphere, box
			if !tt.sphereFirst {
				a, b = box, sphere
			}

			contact, hit, err := Static(a, b)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if hit != tt.wantHit {
				t.Fatalf("Expected hit %v, got %v", tt.wantHit, hit)
			}
			if contact.BodyA != a.Handle() || contact.BodyB != b.Handle() {
				t.Errorf("Expected the contact to keep the pair order")
			}
			if math.Abs(contact.Separation-tt.wantSeparation) > 1e-9 {
				t.Errorf("Expected separation %v, got %v", tt.wantSeparation, contact.Separation)
			}

			// Exact normal, and a sphere arm parallel to it
			normal, pointOnSphere := contact.Normal, contact.WorldPointA
			if !tt.sphereFirst {
				normal, pointOnSphere = normal.Mul(-1), contact.WorldPointB
			}
			if !vec3ApproxEqual(normal, mgl64.Vec3{0, 1, 0}, 1e-12) {
				t.Errorf("Expected normal (0, 1, 0) toward the sphere, got %v", normal)
			}
			if arm := pointOnSphere.Sub(sphere.Transform.Position); arm.Cross(normal).Len() > 1e-12 {
				t.Errorf("Expected the sphere arm %v along the normal", arm)
			}
		})
	}
}

func TestStatic_SphereConvex(t *testing.T) {
	hull := actor.NewConvex([]mgl64.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {-1, 1, -1}, {1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
	})
	ground := actor.NewRigidBody(actor.NewTransform(), hull, actor.BodyTypeStatic, 0)
	sphere := createSphere(mgl64.Vec3{0.2, 1.45, 0.1}, 0.5)
	insert(sphere, ground)

	contact, hit, err := Static(sphere, ground)
	if err != nil || !hit {
		t.Fatalf("Expected a contact, got hit %v, err %v", hit, err)
	}

	arm := contact.WorldPointA.Sub(sphere.Transform.Position)
	if arm.Cross(contact.Normal).Len() > 1e-12 {
		t.Errorf("Expected the sphere arm %v along the normal %v", arm, contact.Normal)
	}
	if math.Abs(arm.Len()-0.5) > 1e-12 {
		t.Errorf("Expected the point on the sphere surface, got an arm of %v", arm.Len())
	}
	if math.Abs(contact.Separation+0.05) > 1e-3 {
		t.Errorf("Expected separation -0.05, got %v", contact.Separation)
	}
}

// =============================================================================
// Intersect
// =============================================================================

func TestIntersect_SkipsInfiniteMassPairs(t *testing.T) {
	a := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
	b := createBox(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
	insert(a, b)

	for _, continuous := range []bool{false, true} {
		if _, hit, err := Intersect(a, b, 1.0/60, continuous); hit || err != nil {
			t.Errorf("Expected no contact between static bodies, got hit %v, err %v", hit, err)
		}
	}
}

func TestIntersect_UnsupportedPair(t *testing.T) {
	flat := actor.NewConvex([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	a := actor.NewRigidBody(actor.NewTransform(), flat, actor.BodyTypeDynamic, 1)
	b := createSphere(mgl64.Vec3{}, 1)
	insert(a, b)

	_, hit, err := Intersect(a, b, 1.0/60, false)
	if !errors.Is(err, ErrUnsupportedPair) {
		t.Errorf("Expected ErrUnsupportedPair, got %v", err)
	}
	if hit {
		t.Errorf("Expected no contact")
	}
}

func TestIntersect_ConvexHull(t *testing.T) {
	hull := actor.NewConvex([]mgl64.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {-1, 1, -1}, {1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {-1, 1, 1}, {1, 1, 1},
	})
	a := actor.NewRigidBody(actor.NewTransformAt(mgl64.Vec3{0, 1.5, 0}), hull, actor.BodyTypeDynamic, 1)
	b := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
	insert(a, b)

	contact, hit, err := Intersect(a, b, 1.0/60, false)
	if err != nil || !hit {
		t.Fatalf("Expected a contact, got hit %v, err %v", hit, err)
	}
	if math.Abs(contact.Separation+0.5) > 1e-3 {
		t.Errorf("Expected separation -0.5, got %v", contact.Separation)
	}
}

func TestIntersect_ContinuousSpheres(t *testing.T) {
	a := createSphere(mgl64.Vec3{-5, 0, 0}, 0.5)
	b := createSphere(mgl64.Vec3{0, 0, 0}, 0.5)
	a.LinearVelocity = mgl64.Vec3{100, 0, 0}
	insert(a, b)

	contact, hit, err := Intersect(a, b, 0.1, true)
	if err != nil || !hit {
		t.Fatalf("Expected a contact, got hit %v, err %v", hit, err)
	}

	if math.Abs(contact.TimeOfImpact-0.04) > 1e-12 {
		t.Errorf("Expected time of impact 0.04, got %v", contact.TimeOfImpact)
	}
	if !vec3ApproxEqual(contact.Normal, mgl64.Vec3{-1, 0, 0}, 1e-12) {
		t.Errorf("Expected normal (-1, 0, 0), got %v", contact.Normal)
	}
	if !vec3ApproxEqual(contact.LocalPointA, mgl64.Vec3{0.5, 0, 0}, 1e-9) {
		t.Errorf("Expected local point A (0.5, 0, 0) at the time of impact, got %v", contact.LocalPointA)
	}
	// Touching at the time of impact
	if math.Abs(contact.Separation) > 1e-9 {
		t.Errorf("Expected separation 0, got %v", contact.Separation)
	}
	if a.Transform.Position != (mgl64.Vec3{-5, 0, 0}) {
		t.Errorf("Expected the body not to move, got %v", a.Transform.Position)
	}
}

func TestIntersect_ConservativeAdvancement(t *testing.T) {
	tests := []struct {
		name     string
		position mgl64.Vec3
		velocity mgl64.Vec3
		wantHit  bool
		wantTOI  float64
	}{
		{"fast sphere hits the box", mgl64.Vec3{-3, 0, 0}, mgl64.Vec3{100, 0, 0}, true, 0.015},
		{"off-center hit", mgl64.Vec3{-3, 0.3, 0.2}, mgl64.Vec3{100, 0, 0}, true, 0.015},
		{"too slow to reach the box", mgl64.Vec3{-3, 0, 0}, mgl64.Vec3{50, 0, 0}, false, 0},
		{"moving away", mgl64.Vec3{-3, 0, 0}, mgl64.Vec3{-100, 0, 0}, false, 0},
		{"resting", mgl64.Vec3{-1.4, 0, 0}, mgl64.Vec3{}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := createSphere(tt.position, 0.5)
			a.LinearVelocity = tt.velocity
			b := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
			insert(a, b)

			contact, hit, err := Intersect(a, b, 1.0/60, true)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if hit != tt.wantHit {
				t.Fatalf("Expected hit %v, got %v", tt.wantHit, hit)
			}
			if a.Transform.Position != tt.position {
				t.Errorf("Expected the body not to move, got %v", a.Transform.Position)
			}
			if !hit {
				return
			}

			if math.Abs(contact.TimeOfImpact-tt.wantTOI) > 1e-6 {
				t.Errorf("Expected time of impact %v, got %v", tt.wantTOI, contact.TimeOfImpact)
			}
			if !vec3ApproxEqual(contact.Normal, mgl64.Vec3{-1, 0, 0}, 1e-3) {
				t.Errorf("Expected normal (-1, 0, 0), got %v", contact.Normal)
			}
			if math.Abs(contact.WorldPointA.X()+1) > 0.11 {
				t.Errorf("Expected the impact on the face x = -1, got %v", contact.WorldPointA)
			}
		})
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkStatic_Boxes(b *testing.B) {
	boxA := createBox(mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeDynamic)
	boxB := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
	insert(boxA, boxB)

	for b.Loop() {
		Static(boxA, boxB)
	}
}

func BenchmarkConservativeAdvancement(b *testing.B) {
	sphere := createSphere(mgl64.Vec3{-3, 0, 0}, 0.5)
	sphere.LinearVelocity = mgl64.Vec3{100, 0, 0}
	box := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, actor.BodyTypeStatic)
	insert(sphere, box)

	for b.Loop() {
		Intersect(sphere, box, 1.0/60, true)
	}
}
