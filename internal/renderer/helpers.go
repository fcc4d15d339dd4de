package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// normalize divides by the length. A zero vector yields NaNs, which is the
// documented outcome for coincident positions.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := math32.Sqrt(v.Dot(v))
	return mgl32.Vec3{v[0] / l, v[1] / l, v[2] / l}
}

// halfway is the Blinn-Phong half vector of two unit directions.
func halfway(lightDir, viewDir mgl32.Vec3) mgl32.Vec3 {
	return normalize(lightDir.Add(viewDir))
}

// clampedDot is max(dot(a, b), 0). NaN inputs stay NaN.
func clampedDot(a, b mgl32.Vec3) float32 {
	d := a.Dot(b)
	if d < 0 {
		return 0
	}
	return d
}

func mulComponents(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
