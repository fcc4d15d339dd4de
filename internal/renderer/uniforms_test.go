package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUniformsLights(t *testing.T) {
	lights := &LightSet{Count: 2}
	lights.Lights[0] = Light{Position: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec3{1, 1, 1}}
	lights.Lights[1] = Light{Position: mgl32.Vec3{4, 5, 6}, Color: mgl32.Vec3{0, 0.5, 0}}
	lights.Lights[5] = Light{Position: mgl32.Vec3{9, 9, 9}, Color: mgl32.Vec3{9, 9, 9}}

	block := PackUniforms(TransformSet{Model: mgl32.Ident4()}, mgl32.Vec3{0, 0, 5}, lights, DefaultMaterial)

	assert.Equal(t, int32(2), block.NumLights)
	assert.Equal(t, [3]float32{4, 5, 6}, block.LightPositions[1])
	assert.Equal(t, [3]float32{0, 0.5, 0}, block.LightColors[1])
	// Slots past the count are never uploaded
	assert.Equal(t, [3]float32{}, block.LightPositions[5])
	assert.Equal(t, [3]float32{}, block.LightColors[5])
	assert.Equal(t, [3]float32{0, 0, 5}, block.ViewPosition)
}

func TestPackUniformsClampsCount(t *testing.T) {
	over := &LightSet{Count: 12}
	assert.Equal(t, int32(MaxLights), PackUniforms(TransformSet{}, mgl32.Vec3{}, over, DefaultMaterial).NumLights)

	under := &LightSet{Count: -1}
	assert.Equal(t, int32(0), PackUniforms(TransformSet{}, mgl32.Vec3{}, under, DefaultMaterial).NumLights)

	assert.Equal(t, int32(0), PackUniforms(TransformSet{}, mgl32.Vec3{}, nil, DefaultMaterial).NumLights)
}

func TestPackUniformsMatrices(t *testing.T) {
	model := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	block := PackUniforms(TransformSet{Model: model}, mgl32.Vec3{}, nil, DefaultMaterial)

	// linmath stores columns, so the translation is the last column
	assert.Equal(t, float32(1), block.Model[3][0])
	assert.Equal(t, float32(2), block.Model[3][1])
	assert.Equal(t, float32(3), block.Model[3][2])

	assert.InDelta(t, 0.5, block.Normal[0][0], 1e-6)
	assert.InDelta(t, 0.5, block.Normal[2][2], 1e-6)
	assert.Equal(t, float32(0), block.Normal[3][0])
	assert.Equal(t, float32(1), block.Normal[3][3])
}

func TestPackUniformsMaterial(t *testing.T) {
	mat := NewMaterial("glass", mgl32.Vec3{0.2, 0.4, 0.6})
	mat.SetGlass(0.2, 0.4, 0.6, 0.5)
	mat.UseTexture = true // no sampler bound

	block := PackUniforms(TransformSet{}, mgl32.Vec3{}, nil, mat)
	assert.False(t, block.UseTexture)
	assert.Equal(t, float32(0.5), block.Alpha)
	assert.Equal(t, float32(128), block.Shininess)
	assert.Equal(t, float32(0.6), block.SpecularStrength)

	mat.SetTexture(NewSolidTexture(red), "red.png")
	assert.True(t, PackUniforms(TransformSet{}, mgl32.Vec3{}, nil, mat).UseTexture)

	// A zero shading config packs the reference constants
	plain := &Material{BaseColor: mgl32.Vec3{1, 1, 1}, Alpha: 1}
	block = PackUniforms(TransformSet{}, mgl32.Vec3{}, nil, plain)
	assert.Equal(t, DefaultAmbientStrength, block.AmbientStrength)
	assert.Equal(t, DefaultSpecularStrength, block.SpecularStrength)
	assert.Equal(t, DefaultShininess, block.Shininess)
}

func TestUniformBlockFloats(t *testing.T) {
	lights := NewLightSet(Light{Position: mgl32.Vec3{7, 8, 9}, Color: mgl32.Vec3{1, 1, 1}})
	block := PackUniforms(TransformSet{Model: mgl32.Ident4()}, mgl32.Vec3{0, 0, 5}, lights, DefaultMaterial)

	floats := block.Floats()
	require.Len(t, floats, 4*16+2*MaxLights*4+12)

	lightBase := 4 * 16
	assert.Equal(t, []float32{7, 8, 9, 0}, floats[lightBase:lightBase+4])

	tail := floats[len(floats)-12:]
	assert.Equal(t, []float32{0, 0, 5, 1}, tail[:4], "view position then light count")
	assert.Equal(t, float32(32), tail[11])
}
