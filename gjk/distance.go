package gjk

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	distanceTolerance = 1e-9
	// relative progress under which the closest point is considered found
	convergenceTolerance = 1e-10
)

// Witness holds the closest features of two bodies
type Witness struct {
	OnA      mgl64.Vec3
	OnB      mgl64.Vec3
	Distance float64
	// Intersecting is set when the bodies overlap, the witness points being meaningless then
	Intersecting bool
}

// ClosestPoints runs the distance variant of GJK: the simplex is reduced at every step to the
// smallest feature supporting the point closest to the origin, whose barycentric coordinates
// map back to a point on each body.
func ClosestPoints(a, b *actor.RigidBody) Witness {
	simplex := SimplexPool.Get().(*Simplex)
	defer SimplexPool.Put(simplex)
	simplex.Reset()

	direction := a.CenterOfMassWorld().Sub(b.CenterOfMassWorld())
	if direction.LenSqr() < distanceTolerance {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.push(Support(a, b, direction.Mul(-1), 0))
	lambdas := [4]float64{1}
	closest := simplex.Points[0].P

	for i := 0; i < maxIterations; i++ {
		if closest.LenSqr() < distanceTolerance*distanceTolerance {
			return Witness{Intersecting: true}
		}

		w := Support(a, b, closest.Mul(-1), 0)

		// No support point gets meaningfully closer to the origin
		progress := closest.LenSqr() - closest.Dot(w.P)
		if progress <= convergenceTolerance*closest.LenSqr() || simplex.contains(w) {
			break
		}

		simplex.push(w)
		closest, lambdas = reduceToClosest(simplex)

		if simplex.Count == 4 {
			return Witness{Intersecting: true}
		}
	}

	var onA, onB mgl64.Vec3
	for i := 0; i < simplex.Count; i++ {
		onA = onA.Add(simplex.Points[i].A.Mul(lambdas[i]))
		onB = onB.Add(simplex.Points[i].B.Mul(lambdas[i]))
	}

	return Witness{OnA: onA, OnB: onB, Distance: onB.Sub(onA).Len()}
}

func (s *Simplex) contains(p SupportPoint) bool {
	for i := 0; i < s.Count; i++ {
		if s.Points[i].P.Sub(p.P).LenSqr() < distanceTolerance*distanceTolerance {
			return true
		}
	}

	return false
}

// reduceToClosest finds the point of the simplex closest to the origin, then drops the
// vertices that do not contribute to it. A full tetrahedron is kept only when it encloses
// the origin.
func reduceToClosest(simplex *Simplex) (mgl64.Vec3, [4]float64) {
	var lambdas [4]float64

	switch simplex.Count {
	case 1:
		lambdas[0] = 1
	case 2:
		lambdas[0], lambdas[1] = closestOnSegment(simplex.Points[0].P, simplex.Points[1].P)
	case 3:
		lambdas[0], lambdas[1], lambdas[2] = closestOnTriangle(simplex.Points[0].P, simplex.Points[1].P, simplex.Points[2].P)
	case 4:
		lambdas = closestOnTetrahedron(simplex)
	}

	count := 0
	for i := 0; i < simplex.Count; i++ {
		if lambdas[i] > 0 {
			simplex.Points[count] = simplex.Points[i]
			lambdas[count] = lambdas[i]
			count++
		}
	}
	for i := count; i < 4; i++ {
		lambdas[i] = 0
	}
	simplex.Count = count

	var closest mgl64.Vec3
	for i := 0; i < count; i++ {
		closest = closest.Add(simplex.Points[i].P.Mul(lambdas[i]))
	}

	return closest, lambdas
}

func closestOnSegment(a, b mgl64.Vec3) (float64, float64) {
	ab := b.Sub(a)
	lenSq := ab.LenSqr()
	if lenSq < distanceTolerance*distanceTolerance {
		return 1, 0
	}

	t := -a.Dot(ab) / lenSq
	switch {
	case t <= 0:
		return 1, 0
	case t >= 1:
		return 0, 1
	}

	return 1 - t, t
}

// closestOnTriangle returns the barycentric coordinates of the point of triangle abc closest
// to the origin, walking its Voronoi regions.
func closestOnTriangle(a, b, c mgl64.Vec3) (float64, float64, float64) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := a.Mul(-1)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return 1, 0, 0
	}

	bp := b.Mul(-1)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return 0, 1, 0
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return 1 - v, v, 0
	}

	cp := c.Mul(-1)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return 0, 0, 1
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return 1 - w, 0, w
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return 0, 1 - w, w
	}

	denom := va + vb + vc
	if math.Abs(denom) < distanceTolerance*distanceTolerance {
		// Degenerate triangle, use its longest edge
		u, v := closestOnSegment(a, b)
		return u, v, 0
	}

	v := vb / denom
	w := vc / denom
	return 1 - v - w, v, w
}

func tripleProduct(a, b, c mgl64.Vec3) float64 {
	return a.Dot(b.Cross(c))
}

// closestOnTetrahedron tests the origin against the 4 faces: inside, the barycentric
// coordinates of the origin are returned; outside, the closest face among the ones it lies
// in front of wins.
func closestOnTetrahedron(simplex *Simplex) [4]float64 {
	p := [4]mgl64.Vec3{simplex.Points[0].P, simplex.Points[1].P, simplex.Points[2].P, simplex.Points[3].P}
	faces := [4][4]int{
		{0, 1, 2, 3},
		{0, 2, 3, 1},
		{0, 3, 1, 2},
		{1, 3, 2, 0},
	}

	volume := tripleProduct(p[1].Sub(p[0]), p[2].Sub(p[0]), p[3].Sub(p[0]))
	flat := math.Abs(volume) < distanceTolerance*distanceTolerance

	var best [4]float64
	bestDistance := math.Inf(1)
	outside := false
	for _, f := range faces {
		a, b, c, opposite := p[f[0]], p[f[1]], p[f[2]], p[f[3]]
		normal := b.Sub(a).Cross(c.Sub(a))
		originSide := normal.Dot(a.Mul(-1))
		oppositeSide := normal.Dot(opposite.Sub(a))

		if !flat && originSide*oppositeSide >= 0 {
			continue
		}
		outside = true

		u, v, w := closestOnTriangle(a, b, c)
		point := a.Mul(u).Add(b.Mul(v)).Add(c.Mul(w))
		if d := point.LenSqr(); d < bestDistance {
			bestDistance = d
			best = [4]float64{}
			best[f[0]], best[f[1]], best[f[2]] = u, v, w
		}
	}

	if outside {
		return best
	}

	lb := tripleProduct(p[0].Mul(-1), p[2].Sub(p[0]), p[3].Sub(p[0])) / volume
	lc := tripleProduct(p[1].Sub(p[0]), p[0].Mul(-1), p[3].Sub(p[0])) / volume
	ld := tripleProduct(p[1].Sub(p[0]), p[2].Sub(p[0]), p[0].Mul(-1)) / volume

	return [4]float64{1 - lb - lc - ld, lb, lc, ld}
}
