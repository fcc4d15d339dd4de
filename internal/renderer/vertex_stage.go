package renderer

import "github.com/go-gl/mathgl/mgl32"

// TransformSet is the model/view/projection triple of one draw.
// Model may scale non-uniformly; its 3x3 block must be invertible.
type TransformSet struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// VertexInput is one vertex in object space. Normal need not be unit length.
type VertexInput struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// VertexOutput carries the clip position plus the attributes the
// rasterizer interpolates for the fragment stage.
type VertexOutput struct {
	ClipPosition  mgl32.Vec4
	WorldPosition mgl32.Vec3
	WorldNormal   mgl32.Vec3 // not normalized
	TexCoord      mgl32.Vec2
}

// upperLeft3 extracts the linear part of an affine transform (column-major).
func upperLeft3(m mgl32.Mat4) mgl32.Mat3 {
	return mgl32.Mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// NormalMatrix is the inverse-transpose of model's upper-left 3x3 block.
// Using the block itself would skew normals under non-uniform scale.
// A singular block is a caller error and gives an undefined result.
func NormalMatrix(model mgl32.Mat4) mgl32.Mat3 {
	return upperLeft3(model).Inv().Transpose()
}

// TransformVertex runs the vertex stage for a single vertex.
func TransformVertex(v VertexInput, ts TransformSet) VertexOutput {
	world := ts.Model.Mul4x1(v.Position.Vec4(1))
	clip := ts.Projection.Mul4(ts.View).Mul4x1(world.Vec3().Vec4(1))
	return VertexOutput{
		ClipPosition:  clip,
		WorldPosition: world.Vec3(),
		WorldNormal:   NormalMatrix(ts.Model).Mul3x1(v.Normal),
		TexCoord:      v.TexCoord,
	}
}

// PreparedTransforms caches the per-draw products so the per-vertex path
// is two matrix-vector multiplies.
type PreparedTransforms struct {
	Model          mgl32.Mat4
	ViewProjection mgl32.Mat4
	Normal         mgl32.Mat3
}

// PrepareTransforms computes the combined matrices of a draw once.
func PrepareTransforms(ts TransformSet) PreparedTransforms {
	return PreparedTransforms{
		Model:          ts.Model,
		ViewProjection: ts.Projection.Mul4(ts.View),
		Normal:         NormalMatrix(ts.Model),
	}
}

// Transform is TransformVertex with the products precomputed.
func (p PreparedTransforms) Transform(v VertexInput) VertexOutput {
	world := p.Model.Mul4x1(v.Position.Vec4(1)).Vec3()
	return VertexOutput{
		ClipPosition:  p.ViewProjection.Mul4x1(world.Vec4(1)),
		WorldPosition: world,
		WorldNormal:   p.Normal.Mul3x1(v.Normal),
		TexCoord:      v.TexCoord,
	}
}
