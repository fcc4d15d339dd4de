package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec3Near(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.Lessf(t, got.Sub(want).Len(), float32(1e-5), "want %v got %v", want, got)
}

func TestTransformScaleRotateTranslateOrder(t *testing.T) {
	tr := NewTransform()
	tr.SetScale(2, 2, 2)
	tr.RotateEuler(0, 90, 0)
	tr.SetPosition(0, 1, 0)

	p := tr.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})

	// Scaled to (2,0,0), turned a quarter about +Y to (0,0,-2), then lifted
	assertVec3Near(t, mgl32.Vec3{0, 1, -2}, p.Vec3())
}

func TestTransformDirections(t *testing.T) {
	tr := NewTransform()
	assertVec3Near(t, mgl32.Vec3{0, 0, -1}, tr.Forward())
	assertVec3Near(t, mgl32.Vec3{1, 0, 0}, tr.Right())
	assertVec3Near(t, mgl32.Vec3{0, 1, 0}, tr.Up())

	tr.RotateEuler(0, 90, 0)
	assertVec3Near(t, mgl32.Vec3{-1, 0, 0}, tr.Forward())
	assertVec3Near(t, mgl32.Vec3{0, 1, 0}, tr.Up())
}

func TestZeroTransformRotationIsIdentity(t *testing.T) {
	tr := Transform{Scale: mgl32.Vec3{1, 1, 1}}

	assert.Equal(t, mgl32.Ident4(), tr.ModelMatrix())
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, tr.Forward())

	tr.RotateEuler(90, 0, 0)
	assertVec3Near(t, mgl32.Vec3{0, 1, 0}, tr.Forward())
}
