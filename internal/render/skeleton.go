package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/novaavatar/internal/rig"
)

// Figure layout in canvas units. The torso origin sits at the canvas center
// and the float offset moves the whole figure.
const (
	torsoX     = 400
	torsoY     = 500
	shoulderX  = 60
	shoulderY  = -110
	upperArm   = 120
	forearm    = 110
	neckHeight = -170
)

// Skeleton is the canvas position of every joint for one pose.
type Skeleton struct {
	Torso         mgl64.Vec2 `json:"torso"`
	LeftShoulder  mgl64.Vec2 `json:"leftShoulder"`
	LeftElbow     mgl64.Vec2 `json:"leftElbow"`
	LeftHand      mgl64.Vec2 `json:"leftHand"`
	RightShoulder mgl64.Vec2 `json:"rightShoulder"`
	RightElbow    mgl64.Vec2 `json:"rightElbow"`
	RightHand     mgl64.Vec2 `json:"rightHand"`
	Neck          mgl64.Vec2 `json:"neck"`
	Head          mgl64.Vec2 `json:"head"`
}

// bones are the local transforms of each group in the figure hierarchy.
type bones struct {
	torso         mgl64.Mat3
	leftShoulder  mgl64.Mat3
	leftElbow     mgl64.Mat3
	rightShoulder mgl64.Mat3
	rightElbow    mgl64.Mat3
	head          mgl64.Mat3
}

func rotate(deg float64) mgl64.Mat3 {
	return mgl64.HomogRotate2D(mgl64.DegToRad(deg))
}

func poseBones(p rig.Pose) bones {
	return bones{
		torso:         mgl64.Translate2D(torsoX, torsoY+p.FloatY),
		leftShoulder:  mgl64.Translate2D(-shoulderX, shoulderY).Mul3(rotate(p.LeftShoulder)),
		leftElbow:     mgl64.Translate2D(0, upperArm).Mul3(rotate(p.LeftElbow)),
		rightShoulder: mgl64.Translate2D(shoulderX, shoulderY).Mul3(rotate(p.RightShoulder)),
		rightElbow:    mgl64.Translate2D(0, upperArm).Mul3(rotate(p.RightElbow)),
		head: mgl64.Translate2D(0, neckHeight).
			Mul3(rotate(p.HeadTilt)).
			Mul3(mgl64.Translate2D(p.HeadTurn, p.HeadNod)),
	}
}

func origin(m mgl64.Mat3) mgl64.Vec2 {
	return point(m, 0, 0)
}

func point(m mgl64.Mat3, x, y float64) mgl64.Vec2 {
	return m.Mul3x1(mgl64.Vec3{x, y, 1}).Vec2()
}

// Solve runs forward kinematics over the pose's joint angles.
func Solve(p rig.Pose) Skeleton {
	return poseBones(sanitize(p)).skeleton()
}

func (b bones) skeleton() Skeleton {
	left := b.torso.Mul3(b.leftShoulder)
	leftFore := left.Mul3(b.leftElbow)
	right := b.torso.Mul3(b.rightShoulder)
	rightFore := right.Mul3(b.rightElbow)

	return Skeleton{
		Torso:         origin(b.torso),
		LeftShoulder:  origin(left),
		LeftElbow:     origin(leftFore),
		LeftHand:      point(leftFore, 0, forearm),
		RightShoulder: origin(right),
		RightElbow:    origin(rightFore),
		RightHand:     point(rightFore, 0, forearm),
		Neck:          point(b.torso, 0, neckHeight),
		Head:          origin(b.torso.Mul3(b.head)),
	}
}
