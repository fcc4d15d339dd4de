package renderer

import "github.com/go-gl/mathgl/mgl32"

// Transform is position, rotation and scale of an object in world space.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// ModelMatrix composes translation * rotation * scale, so vertices are
// scaled first, then rotated, then translated.
func (t Transform) ModelMatrix() mgl32.Mat4 {
	rotation := t.Rotation
	if rotation == (mgl32.Quat{}) {
		rotation = mgl32.QuatIdent()
	}
	scaleMatrix := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	translationMatrix := mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	return translationMatrix.Mul4(rotation.Mat4()).Mul4(scaleMatrix)
}

// Forward is local -Z in world space.
func (t Transform) Forward() mgl32.Vec3 {
	return t.rotate(mgl32.Vec3{0, 0, -1})
}

// Right is local +X in world space.
func (t Transform) Right() mgl32.Vec3 {
	return t.rotate(mgl32.Vec3{1, 0, 0})
}

// Up is local +Y in world space.
func (t Transform) Up() mgl32.Vec3 {
	return t.rotate(mgl32.Vec3{0, 1, 0})
}

func (t Transform) rotate(v mgl32.Vec3) mgl32.Vec3 {
	if t.Rotation == (mgl32.Quat{}) {
		return v
	}
	return t.Rotation.Rotate(v).Normalize()
}

// RotateEuler applies an incremental rotation given in degrees, in world space.
func (t *Transform) RotateEuler(pitch, yaw, roll float32) {
	if t.Rotation == (mgl32.Quat{}) {
		t.Rotation = mgl32.QuatIdent()
	}
	q := mgl32.AnglesToQuat(mgl32.DegToRad(pitch), mgl32.DegToRad(yaw), mgl32.DegToRad(roll), mgl32.XYZ)
	t.Rotation = q.Mul(t.Rotation).Normalize()
}

// SetPosition moves the transform.
func (t *Transform) SetPosition(x, y, z float32) {
	t.Position = mgl32.Vec3{x, y, z}
}

// SetScale sets per-axis scale factors.
func (t *Transform) SetScale(x, y, z float32) {
	t.Scale = mgl32.Vec3{x, y, z}
}
