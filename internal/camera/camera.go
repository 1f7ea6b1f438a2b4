// Package camera provides a fly camera to navigate a scene.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Movement int

const (
	Forward Movement = iota
	Backward
	Left
	Right
)

const (
	maxPitch = 89.0
	minZoom  = 1.0
	maxZoom  = 45.0
)

type Camera struct {
	position mgl32.Vec3
	front    mgl32.Vec3
	up       mgl32.Vec3
	right    mgl32.Vec3
	worldUp  mgl32.Vec3
	// euler angles, degrees
	yaw, pitch float32

	MovementSpeed    float32
	MouseSensitivity float32
	zoom             float32
}

func newCamera() *Camera {
	return &Camera{
		worldUp:          mgl32.Vec3{0, 1, 0},
		up:               mgl32.Vec3{0, 1, 0},
		yaw:              -90,
		zoom:             maxZoom,
		MouseSensitivity: 0.1,
		MovementSpeed:    5,
	}
}

// New returns a camera at position looking down -Z.
func New(position mgl32.Vec3) *Camera {
	c := newCamera()
	c.position = position
	c.updateVectors()
	return c
}

// NewWithAngles returns a camera at position with the given world up vector
// and yaw/pitch in degrees.
func NewWithAngles(position, worldUp mgl32.Vec3, yaw, pitch float32) *Camera {
	c := newCamera()
	c.position = position
	c.worldUp = worldUp
	c.yaw = yaw
	c.pitch = pitch
	c.updateVectors()
	return c
}

func (c *Camera) ProcessKeyboard(direction Movement, deltaTime float32) {
	velocity := c.MovementSpeed * deltaTime
	switch direction {
	case Forward:
		c.position = c.position.Add(c.front.Mul(velocity))
	case Backward:
		c.position = c.position.Sub(c.front.Mul(velocity))
	case Left:
		c.position = c.position.Sub(c.right.Mul(velocity))
	case Right:
		c.position = c.position.Add(c.right.Mul(velocity))
	}
}

func (c *Camera) ProcessMouseMovement(xOffset, yOffset float32, constrainPitch bool) {
	c.yaw += xOffset * c.MouseSensitivity
	c.pitch += yOffset * c.MouseSensitivity

	if constrainPitch {
		c.pitch = mgl32.Clamp(c.pitch, -maxPitch, maxPitch)
	}

	c.updateVectors()
}

func (c *Camera) ProcessMouseScroll(yOffset float32) {
	c.zoom = mgl32.Clamp(c.zoom-yOffset, minZoom, maxZoom)
}

// ViewMatrix returns the lookAt matrix for the camera's current pose.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.front), c.up)
}

// Projection returns a perspective matrix using the camera's zoom as the
// vertical field of view.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.zoom), aspect, 0.1, 100)
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }
func (c *Camera) Front() mgl32.Vec3    { return c.front }
func (c *Camera) Zoom() float32        { return c.zoom }

func (c *Camera) updateVectors() {
	yaw := float64(mgl32.DegToRad(c.yaw))
	pitch := float64(mgl32.DegToRad(c.pitch))
	front := mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}
	c.front = front.Normalize()
	// length shrinks toward 0 when looking up or down, which would slow movement
	c.right = c.front.Cross(c.worldUp).Normalize()
	c.up = c.right.Cross(c.front).Normalize()
}
