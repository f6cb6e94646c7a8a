package epa

import (
	"sync"

	"github.com/akmonengine/impulse/gjk"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// visibilityEpsilon keeps faces nearly coplanar with a new vertex on the polytope
const visibilityEpsilon = 1e-9

// EdgeEntry counts how many visible faces share an edge.
// An edge is on the horizon if it appears exactly once.
type EdgeEntry struct {
	Edge
	Count int
}

// PolytopeBuilder manages polytope expansion with buffers reused across calls.
type PolytopeBuilder struct {
	vertices []gjk.SupportPoint
	faces    []Face

	// Horizon edges, in discovery order
	edges []EdgeEntry

	visibleIndices []int

	// Inside the initial tetrahedron, hence inside every expansion of it
	interior mgl64.Vec3
}

var polytopeBuilderPool = sync.Pool{
	New: func() interface{} {
		return &PolytopeBuilder{
			vertices:       make([]gjk.SupportPoint, 0, polytopeInitialCapacity),
			faces:          make([]Face, 0, polytopeInitialCapacity),
			edges:          make([]EdgeEntry, 0, polytopeInitialCapacity),
			visibleIndices: make([]int, 0, polytopeInitialCapacity),
		}
	},
}

// Reset prepares the builder for reuse
func (b *PolytopeBuilder) Reset() {
	b.vertices = b.vertices[:0]
	b.faces = b.faces[:0]
	b.edges = b.edges[:0]
	b.visibleIndices = b.visibleIndices[:0]
}

// BuildInitialFaces creates the 4 faces of a tetrahedral simplex
func (b *PolytopeBuilder) BuildInitialFaces(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return errors.Errorf("invalid simplex count: %d (expected 4)", simplex.Count)
	}

	b.interior = mgl64.Vec3{}
	for i := 0; i < 4; i++ {
		b.vertices = append(b.vertices, simplex.Points[i])
		b.interior = b.interior.Add(simplex.Points[i].P)
	}
	b.interior = b.interior.Mul(0.25)

	b.faces = append(b.faces,
		createFaceOutward(b.vertices, 0, 1, 2, b.interior),
		createFaceOutward(b.vertices, 0, 2, 3, b.interior),
		createFaceOutward(b.vertices, 0, 3, 1, b.interior),
		createFaceOutward(b.vertices, 1, 3, 2, b.interior),
	)

	return nil
}

// FindClosestFaceIndex returns the index of the face closest to the origin, -1 if none.
func (b *PolytopeBuilder) FindClosestFaceIndex() int {
	if len(b.faces) == 0 {
		return -1
	}

	closestIndex := 0
	minDistance := b.faces[0].Distance
	for i := 1; i < len(b.faces); i++ {
		if b.faces[i].Distance < minDistance {
			closestIndex = i
			minDistance = b.faces[i].Distance
		}
	}

	return closestIndex
}

// hasVertex reports whether p is already a vertex of the polytope
func (b *PolytopeBuilder) hasVertex(p gjk.SupportPoint) bool {
	for _, v := range b.vertices {
		if v.P.Sub(p.P).LenSqr() < 1e-18 {
			return true
		}
	}

	return false
}

func (b *PolytopeBuilder) findVisibleFaces(support mgl64.Vec3) {
	b.visibleIndices = b.visibleIndices[:0]

	for i := range b.faces {
		face := &b.faces[i]
		if face.Normal.Dot(support.Sub(b.vertices[face.Indices[0]].P)) > visibilityEpsilon {
			b.visibleIndices = append(b.visibleIndices, i)
		}
	}
}

func (b *PolytopeBuilder) findBoundaryEdges() {
	b.edges = b.edges[:0]

	for _, faceIdx := range b.visibleIndices {
		for _, edge := range b.faces[faceIdx].edges() {
			if i := b.findEdgeIndex(edge); i >= 0 {
				b.edges[i].Count++
				continue
			}
			b.edges = append(b.edges, EdgeEntry{Edge: edge, Count: 1})
		}
	}
}

// findEdgeIndex performs a linear search, edge counts staying small
func (b *PolytopeBuilder) findEdgeIndex(edge Edge) int {
	for i := range b.edges {
		if b.edges[i].Edge == edge {
			return i
		}
	}

	return -1
}

// removeVisibleFaces keeps the remaining faces in order
func (b *PolytopeBuilder) removeVisibleFaces() {
	kept := b.faces[:0]
	next := 0
	for i, face := range b.faces {
		if next < len(b.visibleIndices) && b.visibleIndices[next] == i {
			next++
			continue
		}
		kept = append(kept, face)
	}
	b.faces = kept
}

func (b *PolytopeBuilder) addBoundaryFaces(supportIdx int) {
	for _, edge := range b.edges {
		if edge.Count != 1 {
			continue
		}
		b.faces = append(b.faces, createFaceOutward(b.vertices, edge.A, edge.B, supportIdx, b.interior))
	}
}

// AddPointAndRebuildFaces expands the polytope by a support point:
//  1. Finds the faces visible from the support point
//  2. Identifies the horizon of the visible region
//  3. Removes visible faces
//  4. Closes the horizon with a fan of faces on the support point
func (b *PolytopeBuilder) AddPointAndRebuildFaces(support gjk.SupportPoint, closestIndex int) {
	b.findVisibleFaces(support.P)

	// The closest face always sees the point it was expanded with
	if len(b.visibleIndices) == 0 {
		b.visibleIndices = append(b.visibleIndices, closestIndex)
	}

	b.findBoundaryEdges()
	b.removeVisibleFaces()

	b.vertices = append(b.vertices, support)
	b.addBoundaryFaces(len(b.vertices) - 1)
}
