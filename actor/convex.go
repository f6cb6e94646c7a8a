package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const hullEpsilon = 1e-6

// Triangle indexes three hull points, counter-clockwise seen from outside the hull
type Triangle struct {
	A, B, C int
}

type hullEdge struct {
	a, b int
}

func makeHullEdge(a, b int) hullEdge {
	if b < a {
		a, b = b, a
	}

	return hullEdge{a: a, b: b}
}

// Convex is a convex hull built once from source geometry
type Convex struct {
	points       []mgl64.Vec3
	triangles    []Triangle
	bounds       AABB
	centerOfMass mgl64.Vec3
	inertia      mgl64.Mat3
}

// NewConvex builds the hull of points. Degenerate geometry gives an empty hull,
// which the narrowphase reports as an unsupported pair.
func NewConvex(points []mgl64.Vec3) *Convex {
	c := &Convex{inertia: mgl64.Ident3()}

	c.points, c.triangles = BuildConvexHull(points)
	if c.IsEmpty() {
		return c
	}

	c.bounds = EmptyAABB()
	for _, p := range c.points {
		c.bounds = c.bounds.ExpandByPoint(p)
	}
	c.centerOfMass, c.inertia = hullMassProperties(c.points, c.triangles)

	return c
}

func (c *Convex) Type() ShapeType {
	return ShapeTypeConvex
}

// IsEmpty reports whether hull construction failed on degenerate input
func (c *Convex) IsEmpty() bool {
	return len(c.triangles) == 0
}

func (c *Convex) Points() []mgl64.Vec3 {
	return c.points
}

func (c *Convex) Triangles() []Triangle {
	return c.triangles
}

func (c *Convex) Support(direction mgl64.Vec3, bias float64) mgl64.Vec3 {
	return supportOf(c.points, direction, bias)
}

func (c *Convex) LocalBounds() AABB {
	return c.bounds
}

func (c *Convex) Bounds(transform Transform) AABB {
	if c.IsEmpty() {
		return AABB{Min: transform.Position, Max: transform.Position}
	}

	return transformAABB(c.points, transform)
}

func (c *Convex) CenterOfMass() mgl64.Vec3 {
	return c.centerOfMass
}

func (c *Convex) InertiaTensor() mgl64.Mat3 {
	return c.inertia
}

func (c *Convex) FastestLinearSpeed(angularVelocity, direction mgl64.Vec3) float64 {
	return fastestLinearSpeed(c.points, c.centerOfMass, angularVelocity, direction)
}

// BuildConvexHull computes the convex hull of points incrementally: it starts from the
// tetrahedron spanned by extreme points, then keeps adding the point farthest outside the
// current hull, replacing the triangles it can see by a fan over their horizon.
// Fewer than 4 points, or points that are all collinear or coplanar, produce no hull.
func BuildConvexHull(points []mgl64.Vec3) ([]mgl64.Vec3, []Triangle) {
	if len(points) < 4 {
		return nil, nil
	}

	hull, ok := initialTetrahedron(points)
	if !ok {
		return nil, nil
	}

	interior := hull[0].Add(hull[1]).Add(hull[2]).Add(hull[3]).Mul(0.25)
	triangles := []Triangle{
		orientTriangle(hull, 0, 1, 2, interior),
		orientTriangle(hull, 0, 1, 3, interior),
		orientTriangle(hull, 0, 2, 3, interior),
		orientTriangle(hull, 1, 2, 3, interior),
	}

	remaining := outsidePoints(hull, triangles, points)
	for len(remaining) > 0 {
		idx := farthestOutside(hull, triangles, remaining)
		if idx < 0 {
			break
		}

		point := remaining[idx]
		hull, triangles = expandHull(hull, triangles, point, interior)
		remaining = outsidePoints(hull, triangles, remaining)
	}

	return compactHull(hull, triangles)
}

// initialTetrahedron picks 4 extreme, non-coplanar points
func initialTetrahedron(points []mgl64.Vec3) ([]mgl64.Vec3, bool) {
	i0 := 0
	for i, p := range points {
		if p.X() < points[i0].X() {
			i0 = i
		}
	}
	p0 := points[i0]

	i1, best := -1, hullEpsilon
	for i, p := range points {
		if d := p.Sub(p0).Len(); d > best {
			i1, best = i, d
		}
	}
	if i1 < 0 {
		return nil, false
	}
	p1 := points[i1]

	lineDir := p1.Sub(p0).Normalize()
	i2, best := -1, hullEpsilon
	for i, p := range points {
		if d := p.Sub(p0).Cross(lineDir).Len(); d > best {
			i2, best = i, d
		}
	}
	if i2 < 0 {
		return nil, false
	}
	p2 := points[i2]

	normal := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
	i3, best := -1, hullEpsilon
	for i, p := range points {
		if d := math.Abs(normal.Dot(p.Sub(p0))); d > best {
			i3, best = i, d
		}
	}
	if i3 < 0 {
		return nil, false
	}

	return []mgl64.Vec3{p0, p1, p2, points[i3]}, true
}

// orientTriangle winds a, b, c so that its normal points away from interior
func orientTriangle(hull []mgl64.Vec3, a, b, c int, interior mgl64.Vec3) Triangle {
	normal := hull[b].Sub(hull[a]).Cross(hull[c].Sub(hull[a]))
	if normal.Dot(hull[a].Sub(interior)) < 0 {
		b, c = c, b
	}

	return Triangle{A: a, B: b, C: c}
}

func triangleNormal(hull []mgl64.Vec3, t Triangle) mgl64.Vec3 {
	return hull[t.B].Sub(hull[t.A]).Cross(hull[t.C].Sub(hull[t.A])).Normalize()
}

func distanceAbove(hull []mgl64.Vec3, t Triangle, point mgl64.Vec3) float64 {
	return triangleNormal(hull, t).Dot(point.Sub(hull[t.A]))
}

// outsidePoints keeps the points that lie above at least one triangle
func outsidePoints(hull []mgl64.Vec3, triangles []Triangle, points []mgl64.Vec3) []mgl64.Vec3 {
	outside := make([]mgl64.Vec3, 0, len(points))
	for _, p := range points {
		for _, t := range triangles {
			if distanceAbove(hull, t, p) > hullEpsilon {
				outside = append(outside, p)
				break
			}
		}
	}

	return outside
}

func farthestOutside(hull []mgl64.Vec3, triangles []Triangle, points []mgl64.Vec3) int {
	idx, best := -1, hullEpsilon
	for i, p := range points {
		for _, t := range triangles {
			if d := distanceAbove(hull, t, p); d > best {
				idx, best = i, d
			}
		}
	}

	return idx
}

// expandHull adds point to the hull: visible triangles are removed and the horizon,
// made of the edges used by exactly one visible triangle, is closed by a fan on point.
func expandHull(hull []mgl64.Vec3, triangles []Triangle, point, interior mgl64.Vec3) ([]mgl64.Vec3, []Triangle) {
	edgeCount := make(map[hullEdge]int)
	var edges []hullEdge
	kept := make([]Triangle, 0, len(triangles)+2)
	for _, t := range triangles {
		if distanceAbove(hull, t, point) <= hullEpsilon {
			kept = append(kept, t)
			continue
		}

		for _, e := range [3]hullEdge{makeHullEdge(t.A, t.B), makeHullEdge(t.B, t.C), makeHullEdge(t.C, t.A)} {
			if edgeCount[e] == 0 {
				edges = append(edges, e)
			}
			edgeCount[e]++
		}
	}

	newIdx := len(hull)
	hull = append(hull, point)
	for _, e := range edges {
		if edgeCount[e] == 1 {
			kept = append(kept, orientTriangle(hull, e.a, e.b, newIdx, interior))
		}
	}

	return hull, kept
}

// compactHull drops the points no triangle references anymore
func compactHull(hull []mgl64.Vec3, triangles []Triangle) ([]mgl64.Vec3, []Triangle) {
	remap := make(map[int]int, len(hull))
	points := make([]mgl64.Vec3, 0, len(hull))
	index := func(i int) int {
		if j, ok := remap[i]; ok {
			return j
		}
		remap[i] = len(points)
		points = append(points, hull[i])
		return remap[i]
	}

	compacted := make([]Triangle, len(triangles))
	for i, t := range triangles {
		compacted[i] = Triangle{A: index(t.A), B: index(t.B), C: index(t.C)}
	}

	return points, compacted
}

// hullMassProperties integrates a uniform unit mass over the tetrahedra formed by each
// triangle and an interior point. The inertia is taken about the center of mass.
func hullMassProperties(points []mgl64.Vec3, triangles []Triangle) (mgl64.Vec3, mgl64.Mat3) {
	ref := mgl64.Vec3{}
	for _, p := range points {
		ref = ref.Add(p)
	}
	ref = ref.Mul(1 / float64(len(points)))

	volume := 0.0
	centerOfMass := mgl64.Vec3{}
	for _, t := range triangles {
		a, b, c := points[t.A], points[t.B], points[t.C]
		v := a.Sub(ref).Dot(b.Sub(ref).Cross(c.Sub(ref))) / 6.0
		volume += v
		centerOfMass = centerOfMass.Add(ref.Add(a).Add(b).Add(c).Mul(v / 4.0))
	}
	if volume <= 0 {
		return ref, mgl64.Ident3()
	}
	centerOfMass = centerOfMass.Mul(1 / volume)

	// Second moment of a tetrahedron: V/20 * (sum pi.piT + s.sT), s being the vertex sum
	covariance := mgl64.Mat3{}
	p0 := ref.Sub(centerOfMass)
	for _, t := range triangles {
		p1 := points[t.A].Sub(centerOfMass)
		p2 := points[t.B].Sub(centerOfMass)
		p3 := points[t.C].Sub(centerOfMass)
		v := p1.Sub(p0).Dot(p2.Sub(p0).Cross(p3.Sub(p0))) / 6.0

		s := p0.Add(p1).Add(p2).Add(p3)
		moment := p0.OuterProd3(p0).
			Add(p1.OuterProd3(p1)).
			Add(p2.OuterProd3(p2)).
			Add(p3.OuterProd3(p3)).
			Add(s.OuterProd3(s))
		covariance = covariance.Add(moment.Mul(v / 20.0))
	}
	covariance = covariance.Mul(1 / volume)

	inertia := mgl64.Ident3().Mul(covariance.Trace()).Sub(covariance)

	return centerOfMass, inertia
}
