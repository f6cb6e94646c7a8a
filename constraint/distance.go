package constraint

import (
	"math"

	"github.com/akmonengine/impulse/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// JointBeta is the share of the joint drift corrected per second of dt
	JointBeta = 0.05
	// jointSlop is the squared anchor distance tolerated without correction
	jointSlop = 0.01
	// maxJointImpulse bounds the cached impulses of joints
	maxJointImpulse = 1e5
)

// Distance is a ball socket joint: both anchors stay at the same point, the bodies rotating
// freely around it.
type Distance struct {
	Config

	jacobian     *mgl64.MatMxN
	cachedLambda *mgl64.VecN
	baumgarte    float64
}

func NewDistance(config Config) *Distance {
	return &Distance{
		Config:       config,
		jacobian:     newMatrix(1, bodyPairDOF),
		cachedLambda: newVector(1),
	}
}

// distanceRow writes the row keeping both anchors together, returning its drift correction
func distanceRow(jacobian *mgl64.MatMxN, row int, anchors anchors, dt float64) float64 {
	r := anchors.worldB.Sub(anchors.worldA)
	ab := anchors.worldA.Sub(anchors.worldB).Mul(2)
	ba := anchors.worldB.Sub(anchors.worldA).Mul(2)
	setRow(jacobian, row, ab, anchors.ra.Cross(ab), ba, anchors.rb.Cross(ba))

	c := math.Max(0, r.Dot(r)-jointSlop)
	return JointBeta / dt * c
}

func (d *Distance) PreSolve(bodies *actor.Arena, dt float64) error {
	a, b, err := bodies.Pair(d.BodyA, d.BodyB)
	if err != nil {
		return err
	}

	d.jacobian.Zero(1, bodyPairDOF)
	d.baumgarte = distanceRow(d.jacobian, 0, d.anchors(a, b), dt)

	applyLambda(a, b, d.jacobian, d.cachedLambda)

	return nil
}

func (d *Distance) Solve(bodies *actor.Arena) error {
	a, b, err := bodies.Pair(d.BodyA, d.BodyB)
	if err != nil {
		return err
	}

	lambda := solveRows(a, b, d.jacobian, []float64{d.baumgarte})
	applyLambda(a, b, d.jacobian, lambda)
	d.cachedLambda.Add(d.cachedLambda, lambda)

	return nil
}

func (d *Distance) PostSolve() {
	clampCachedLambda(d.cachedLambda, maxJointImpulse)
}
