package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FragmentInput holds the interpolated vertex-stage attributes of one fragment.
type FragmentInput struct {
	WorldPosition mgl32.Vec3
	WorldNormal   mgl32.Vec3 // normalized here, not by the caller
	TexCoord      mgl32.Vec2
}

// specularFactor is (n.h)^shininess, exactly zero when the half vector is
// perpendicular or the exponent is not positive. NaN passes through.
func specularFactor(normal, lightDir, viewDir mgl32.Vec3, shininess float32) float32 {
	nh := clampedDot(normal, halfway(lightDir, viewDir))
	if nh <= 0 || shininess <= 0 {
		return 0
	}
	return math32.Pow(nh, shininess)
}

// ShadeFragment evaluates Blinn-Phong lighting for one fragment and returns RGBA.
//
// The base color is resolved once, then every active light (at most MaxLights)
// facing the surface adds diffuse and specular terms. Ambient follows the material's
// AmbientPolicy, by default the first light's color. Channels are not clamped
// above, and alpha is the material alpha untouched. A light or camera placed
// exactly on the fragment produces NaN for this fragment only.
func ShadeFragment(in FragmentInput, camera mgl32.Vec3, lights *LightSet, mat *Material) mgl32.Vec4 {
	shading := mat.Shading.Resolved()
	base := mat.ColorSource().BaseColorAt(in.TexCoord)

	normal := normalize(in.WorldNormal)
	viewDir := normalize(camera.Sub(in.WorldPosition))

	ambient := shading.ambientColor(lights).Mul(shading.AmbientStrength)

	var diffuse, specular mgl32.Vec3
	n := lights.Active()
	for i := 0; i < n; i++ {
		light := &lights.Lights[i]
		lightDir := normalize(light.Position.Sub(in.WorldPosition))

		diff := clampedDot(normal, lightDir)
		if diff <= 0 {
			continue
		}
		diffuse = diffuse.Add(light.Color.Mul(diff))

		specular = specular.Add(light.Color.Mul(shading.SpecularStrength * specularFactor(normal, lightDir, viewDir, shading.Shininess)))
	}

	result := mulComponents(ambient.Add(diffuse).Add(specular), base)
	return mgl32.Vec4{result[0], result[1], result[2], mat.Alpha}
}
