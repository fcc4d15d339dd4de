package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/linmath"
)

// UniformBlock is the per-draw uniform data laid out the way a GPU program
// consumes it: light arrays always hold MaxLights entries, with the unused
// tail zeroed, and NumLights already clamped.
type UniformBlock struct {
	Model      linmath.Mat4x4
	View       linmath.Mat4x4
	Projection linmath.Mat4x4
	Normal     linmath.Mat4x4 // 3x3 normal matrix in the upper-left, padded to 4x4

	LightPositions [MaxLights][3]float32
	LightColors    [MaxLights][3]float32
	NumLights      int32

	ViewPosition [3]float32
	ObjectColor  [3]float32
	UseTexture   bool
	Alpha        float32

	AmbientStrength  float32
	SpecularStrength float32
	Shininess        float32
}

// PackUniforms flattens one draw's shared state into a UniformBlock.
func PackUniforms(ts TransformSet, camera mgl32.Vec3, lights *LightSet, mat *Material) UniformBlock {
	shading := mat.Shading.Resolved()
	block := UniformBlock{
		Model:            toLinmath(ts.Model),
		View:             toLinmath(ts.View),
		Projection:       toLinmath(ts.Projection),
		Normal:           toLinmath(padMat3(NormalMatrix(ts.Model))),
		NumLights:        int32(lights.Active()),
		ViewPosition:     camera,
		ObjectColor:      mat.BaseColor,
		UseTexture:       mat.UseTexture && mat.Texture != nil,
		Alpha:            mat.Alpha,
		AmbientStrength:  shading.AmbientStrength,
		SpecularStrength: shading.SpecularStrength,
		Shininess:        shading.Shininess,
	}
	for i := 0; i < int(block.NumLights); i++ {
		block.LightPositions[i] = lights.Lights[i].Position
		block.LightColors[i] = lights.Lights[i].Color
	}
	return block
}

func padMat3(m mgl32.Mat3) mgl32.Mat4 {
	return mgl32.Mat4{
		m[0], m[1], m[2], 0,
		m[3], m[4], m[5], 0,
		m[6], m[7], m[8], 0,
		0, 0, 0, 1,
	}
}

// toLinmath converts a column-major mgl32 matrix to linmath's array of columns.
func toLinmath(m mgl32.Mat4) linmath.Mat4x4 {
	var out linmath.Mat4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = m[i*4+j]
		}
	}
	return out
}

// Floats returns the block as a flat std140-style float slice: four
// matrices, then vec4-padded light positions and colors, then the scalars.
func (b *UniformBlock) Floats() []float32 {
	out := make([]float32, 0, 4*16+2*MaxLights*4+16)
	for _, m := range []*linmath.Mat4x4{&b.Model, &b.View, &b.Projection, &b.Normal} {
		for _, col := range m {
			out = append(out, col[:]...)
		}
	}
	for _, p := range b.LightPositions {
		out = append(out, p[0], p[1], p[2], 0)
	}
	for _, c := range b.LightColors {
		out = append(out, c[0], c[1], c[2], 0)
	}
	useTexture := float32(0)
	if b.UseTexture {
		useTexture = 1
	}
	out = append(out,
		b.ViewPosition[0], b.ViewPosition[1], b.ViewPosition[2], float32(b.NumLights),
		b.ObjectColor[0], b.ObjectColor[1], b.ObjectColor[2], useTexture,
		b.Alpha, b.AmbientStrength, b.SpecularStrength, b.Shininess,
	)
	return out
}
