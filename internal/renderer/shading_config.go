package renderer

import "github.com/go-gl/mathgl/mgl32"

// AmbientPolicy selects where the ambient color comes from.
type AmbientPolicy int

const (
	// AmbientFirstLight scales the first light's color, or white with no lights.
	AmbientFirstLight AmbientPolicy = iota
	// AmbientAverage scales the mean color of the active lights, or white with no lights.
	AmbientAverage
	// AmbientFixed scales ShadingConfig.AmbientColor regardless of the lights.
	AmbientFixed
)

const (
	DefaultAmbientStrength  float32 = 0.15
	DefaultSpecularStrength float32 = 0.3
	DefaultShininess        float32 = 32.0
)

// ShadingConfig holds the Blinn-Phong constants for a material.
// The zero value means "use the defaults".
type ShadingConfig struct {
	AmbientStrength  float32       `json:"ambient_strength" yaml:"ambient_strength"`
	SpecularStrength float32       `json:"specular_strength" yaml:"specular_strength"`
	Shininess        float32       `json:"shininess" yaml:"shininess"`
	Ambient          AmbientPolicy `json:"ambient_policy" yaml:"ambient_policy"`
	AmbientColor     mgl32.Vec3    `json:"ambient_color" yaml:"ambient_color"`
}

// DefaultShadingConfig returns the reference constants: ambient 0.15, specular 0.3, exponent 32.
func DefaultShadingConfig() ShadingConfig {
	return ShadingConfig{
		AmbientStrength:  DefaultAmbientStrength,
		SpecularStrength: DefaultSpecularStrength,
		Shininess:        DefaultShininess,
		Ambient:          AmbientFirstLight,
		AmbientColor:     mgl32.Vec3{1, 1, 1},
	}
}

// GlossyShadingConfig gives a tighter, brighter highlight.
func GlossyShadingConfig() ShadingConfig {
	config := DefaultShadingConfig()
	config.SpecularStrength = 0.6
	config.Shininess = 128
	return config
}

// MatteShadingConfig mostly removes the highlight.
func MatteShadingConfig() ShadingConfig {
	config := DefaultShadingConfig()
	config.SpecularStrength = 0.05
	config.Shininess = 4
	return config
}

func (c ShadingConfig) isZero() bool {
	return c == ShadingConfig{}
}

// Resolved substitutes the defaults for a zero-valued config.
func (c ShadingConfig) Resolved() ShadingConfig {
	if c.isZero() {
		return DefaultShadingConfig()
	}
	return c
}

// ambientColor is the unscaled ambient color for a light set under this policy.
func (c ShadingConfig) ambientColor(lights *LightSet) mgl32.Vec3 {
	white := mgl32.Vec3{1, 1, 1}
	switch c.Ambient {
	case AmbientAverage:
		n := lights.Active()
		if n == 0 {
			return white
		}
		var sum mgl32.Vec3
		for i := 0; i < n; i++ {
			sum = sum.Add(lights.Lights[i].Color)
		}
		return sum.Mul(1 / float32(n))
	case AmbientFixed:
		return c.AmbientColor
	default:
		if first, ok := lights.First(); ok {
			return first.Color
		}
		return white
	}
}
