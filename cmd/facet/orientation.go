package main

import (
	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/facet/pkg/math3d"
)

// rotationAxis tracks position and velocity for one rotation axis. The
// velocity decays toward zero on a critically damped spring.
type rotationAxis struct {
	position  float64
	velocity  float64
	velSpring harmonica.Spring
	velAccel  float64
}

func newRotationAxis(fps int) rotationAxis {
	return rotationAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

func (a *rotationAxis) update() {
	a.position += a.velocity
	a.velocity, a.velAccel = a.velSpring.Update(a.velocity, a.velAccel, 0)
}

// orientation is the model rotation driven by the terminal viewer. A
// reset eases from the orientation at the time of the reset back to the
// live axes, which restart at zero.
type orientation struct {
	pitch, yaw, roll rotationAxis
	fps              int

	resetFrom   math3d.Quat
	resetT      float64
	resetVel    float64
	resetSpring harmonica.Spring
	resetting   bool
}

func newOrientation(fps int) *orientation {
	return &orientation{
		pitch:       newRotationAxis(fps),
		yaw:         newRotationAxis(fps),
		roll:        newRotationAxis(fps),
		fps:         fps,
		resetSpring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// step advances one frame. spin is added to the yaw position directly,
// in radians.
func (o *orientation) step(spin float64) {
	o.pitch.update()
	o.yaw.update()
	o.roll.update()
	o.yaw.position += spin

	if o.resetting {
		o.resetT, o.resetVel = o.resetSpring.Update(o.resetT, o.resetVel, 1)
		if 1-o.resetT < 1e-3 {
			o.resetting = false
		}
	}
}

func (o *orientation) impulse(pitch, yaw, roll float64) {
	o.pitch.velocity += pitch
	o.yaw.velocity += yaw
	o.roll.velocity += roll
}

func (o *orientation) reset() {
	o.resetFrom = o.quat()
	o.resetT, o.resetVel = 0, 0
	o.resetting = true
	o.pitch = newRotationAxis(o.fps)
	o.yaw = newRotationAxis(o.fps)
	o.roll = newRotationAxis(o.fps)
}

// axes is the live rotation: pitch about X, then yaw about Y, then roll
// about Z, with roll applied to the model first.
func (o *orientation) axes() math3d.Quat {
	x := math3d.AngleAxis(float32(o.pitch.position), math3d.V3(1, 0, 0))
	y := math3d.AngleAxis(float32(o.yaw.position), math3d.V3(0, 1, 0))
	z := math3d.AngleAxis(float32(o.roll.position), math3d.V3(0, 0, 1))
	return x.Mul(y).Mul(z)
}

func (o *orientation) quat() math3d.Quat {
	q := o.axes()
	if o.resetting {
		return o.resetFrom.Slerp(q, float32(o.resetT))
	}
	return q
}

func (o *orientation) matrix() math3d.Mat4 {
	return o.quat().Mat4()
}
