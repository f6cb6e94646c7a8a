package epa

import (
	"math"

	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope, indexing PolytopeBuilder vertices
type Face struct {
	Indices  [3]int
	Normal   mgl64.Vec3 // Pointing out of the polytope
	Distance float64    // Signed distance from the origin to the face plane
}

// Edge is a polytope edge, stored with A < B
type Edge struct {
	A, B int
}

func makeEdge(a, b int) Edge {
	if b < a {
		a, b = b, a
	}

	return Edge{A: a, B: b}
}

func (f *Face) edges() [3]Edge {
	return [3]Edge{
		makeEdge(f.Indices[0], f.Indices[1]),
		makeEdge(f.Indices[1], f.Indices[2]),
		makeEdge(f.Indices[2], f.Indices[0]),
	}
}

// createFaceOutward orients the triangle i, j, k so that its normal points away from the
// interior point.
func createFaceOutward(vertices []gjk.SupportPoint, i, j, k int, interior mgl64.Vec3) Face {
	a, b, c := vertices[i].P, vertices[j].P, vertices[k].P
	normal := b.Sub(a).Cross(c.Sub(a))

	length := normal.Len()
	if length < 1e-12 {
		// Zero area: fall back to the direction from the interior
		normal = a.Add(b).Add(c).Mul(1.0 / 3.0).Sub(interior)
		length = normal.Len()
		if length < 1e-12 {
			normal, length = mgl64.Vec3{0, 1, 0}, 1
		}
	}
	normal = normal.Mul(1 / length)

	if normal.Dot(a.Sub(interior)) < 0 {
		normal = normal.Mul(-1)
		j, k = k, j
	}

	return Face{
		Indices:  [3]int{i, j, k},
		Normal:   normal,
		Distance: normal.Dot(a),
	}
}

// barycentric returns the coordinates of p, lying in the plane of a, b, c
func barycentric(a, b, c, p mgl64.Vec3) (float64, float64, float64) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-18 {
		return 1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0
	}

	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom

	return 1 - v - w, v, w
}

// witness maps the projection of the origin on the face back onto each body
func (f *Face) witness(vertices []gjk.SupportPoint) (mgl64.Vec3, mgl64.Vec3) {
	p0, p1, p2 := vertices[f.Indices[0]], vertices[f.Indices[1]], vertices[f.Indices[2]]
	u, v, w := barycentric(p0.P, p1.P, p2.P, f.Normal.Mul(f.Distance))

	onA := p0.A.Mul(u).Add(p1.A.Mul(v)).Add(p2.A.Mul(w))
	onB := p0.B.Mul(u).Add(p1.B.Mul(v)).Add(p2.B.Mul(w))

	return onA, onB
}
