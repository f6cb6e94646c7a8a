// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects a collision to determine:
//   - Penetration depth (how far shapes overlap)
//   - Contact normal (direction to separate shapes)
//   - Witness points (the deepest point of each shape inside the other)
//
// The algorithm expands a polytope (starting from GJK's final simplex) toward the boundary
// of the Minkowski difference, finding the face closest to the origin which gives the
// Minimum Translation Vector (MTV) to separate the shapes. The barycentric coordinates of the
// origin projected on that face map back to a witness point on each shape.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

const (
	// EPAMaxIterations limits polytope expansion.
	// Curved shapes converge slowest, reaching the tolerance in about 20 iterations.
	EPAMaxIterations = 64

	// EPAConvergenceTolerance defines when EPA has converged: a new support point
	// improving the face distance by less than this is the boundary itself.
	EPAConvergenceTolerance = 0.0001

	// affineEpsilon is the distance under which a candidate point is considered on the
	// line or plane of the current simplex
	affineEpsilon = 1e-6

	polytopeInitialCapacity = 16
)

// ErrDegenerateSimplex is returned when no tetrahedron can be grown from the GJK simplex,
// which happens for shapes with no volume.
var ErrDegenerateSimplex = errors.New("epa: degenerate simplex")

// ErrDegeneratePolytope is returned when an expansion removed every face
var ErrDegeneratePolytope = errors.New("epa: degenerate polytope")

// Result of a penetration query
type Result struct {
	// Normal points from A toward B: moving B by Normal*Depth separates the shapes
	Normal mgl64.Vec3
	Depth  float64
	// Deepest point of A inside B, and of B inside A, in world space
	OnA mgl64.Vec3
	OnB mgl64.Vec3
}

// EPA computes the penetration of two overlapping bodies, both inflated by bias.
//
// Algorithm overview:
//  1. Grow the GJK simplex to a tetrahedron when GJK ended on a touching feature
//  2. Build the initial polytope faces from the tetrahedron
//  3. Find the face closest to the origin
//  4. Get the support point along its normal
//  5. If it does not move the face meaningfully, converged
//  6. Otherwise expand the polytope with the support point and repeat from step 3
//
// The simplex is modified in place.
func EPA(a, b *actor.RigidBody, simplex *gjk.Simplex, bias float64) (Result, error) {
	if err := completeSimplex(a, b, simplex, bias); err != nil {
		return Result{}, err
	}

	builder := polytopeBuilderPool.Get().(*PolytopeBuilder)
	defer polytopeBuilderPool.Put(builder)
	builder.Reset()

	if err := builder.BuildInitialFaces(simplex); err != nil {
		return Result{}, err
	}

	closestIndex := builder.FindClosestFaceIndex()
	for i := 0; i < EPAMaxIterations; i++ {
		face := builder.faces[closestIndex]

		support := gjk.Support(a, b, face.Normal, bias)
		distance := support.P.Dot(face.Normal)
		if distance-face.Distance < EPAConvergenceTolerance || builder.hasVertex(support) {
			break
		}

		builder.AddPointAndRebuildFaces(support, closestIndex)
		if len(builder.faces) == 0 {
			return Result{}, ErrDegeneratePolytope
		}
		closestIndex = builder.FindClosestFaceIndex()
	}

	face := builder.faces[closestIndex]
	onA, onB := face.witness(builder.vertices)

	return Result{
		Normal: face.Normal,
		Depth:  math.Max(face.Distance, 0),
		OnA:    onA,
		OnB:    onB,
	}, nil
}

var axes = [6]mgl64.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// completeSimplex adds support points until the simplex spans a volume
func completeSimplex(a, b *actor.RigidBody, simplex *gjk.Simplex, bias float64) error {
	if simplex.Count == 0 {
		simplex.Points[0] = gjk.Support(a, b, axes[0], bias)
		simplex.Count = 1
	}

	for simplex.Count < 4 {
		if !growSimplex(a, b, simplex, bias) {
			return errors.Wrapf(ErrDegenerateSimplex, "stuck at %d points", simplex.Count)
		}
	}

	return nil
}

func growSimplex(a, b *actor.RigidBody, simplex *gjk.Simplex, bias float64) bool {
	var directions [12]mgl64.Vec3
	count := 0

	p0 := simplex.Points[0].P
	switch simplex.Count {
	case 1:
		count = copy(directions[:], axes[:])
	case 2:
		line := simplex.Points[1].P.Sub(p0)
		for _, axis := range axes[:] {
			if d := line.Cross(axis); d.LenSqr() > affineEpsilon*affineEpsilon {
				directions[count] = d
				count++
			}
		}
	case 3:
		normal := simplex.Points[1].P.Sub(p0).Cross(simplex.Points[2].P.Sub(p0))
		directions[0], directions[1] = normal, normal.Mul(-1)
		count = 2
	}

	for _, direction := range directions[:count] {
		support := gjk.Support(a, b, direction, bias)
		if isAffinelyIndependent(simplex, support.P) {
			simplex.Points[simplex.Count] = support
			simplex.Count++
			return true
		}
	}

	return false
}

// isAffinelyIndependent reports whether p lies off the point, line or plane of the simplex
func isAffinelyIndependent(simplex *gjk.Simplex, p mgl64.Vec3) bool {
	p0 := simplex.Points[0].P
	toP := p.Sub(p0)

	switch simplex.Count {
	case 1:
		return toP.Len() > affineEpsilon
	case 2:
		line := simplex.Points[1].P.Sub(p0)
		return toP.Cross(line).Len() > affineEpsilon*line.Len()
	case 3:
		normal := simplex.Points[1].P.Sub(p0).Cross(simplex.Points[2].P.Sub(p0))
		if normal.LenSqr() == 0 {
			return false
		}
		return math.Abs(normal.Normalize().Dot(toP)) > affineEpsilon
	}

	return false
}
