package renderer

import (
	"GopherShade/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// DefaultMaterial provides a basic material to fall back on. Copy it before
// changing anything; Clone does that.
var DefaultMaterial = &Material{
	Name:      "default",
	BaseColor: mgl32.Vec3{0.8, 0.8, 0.8},
	Alpha:     1.0,
	Shading:   DefaultShadingConfig(),
}

// Sampler is a 2D texture lookup returning RGBA.
type Sampler interface {
	Sample(uv mgl32.Vec2) mgl32.Vec4
}

// Material is the per-object shading input: base color or texture, alpha and
// Blinn-Phong constants.
type Material struct {
	// HOT DATA - read for every fragment
	BaseColor  mgl32.Vec3    // Used when UseTexture is false
	UseTexture bool          // Selects Texture over BaseColor
	Texture    Sampler       // Bound texture, may be nil when UseTexture is false
	Alpha      float32       // Passed through to the output unchanged
	Shading    ShadingConfig // Zero value means reference constants

	// COLD DATA
	Name        string
	TexturePath string // Where Texture was loaded from, for scene files
}

// NewMaterial returns an opaque untextured material with default shading.
func NewMaterial(name string, color mgl32.Vec3) *Material {
	return &Material{
		Name:      name,
		BaseColor: color,
		Alpha:     1.0,
		Shading:   DefaultShadingConfig(),
	}
}

// Clone returns an independent copy. The texture sampler is shared.
func (m *Material) Clone() *Material {
	c := *m
	return &c
}

// SetTexture binds a sampler and turns texturing on. A nil sampler turns it off.
func (m *Material) SetTexture(s Sampler, path string) {
	m.Texture = s
	m.TexturePath = path
	m.UseTexture = s != nil
	logger.Log.Debug("Texture bound to material",
		zap.String("material", m.Name),
		zap.String("path", path),
		zap.Bool("useTexture", m.UseTexture))
}

// SetAlpha sets the output alpha. Values are not clamped.
func (m *Material) SetAlpha(alpha float32) {
	m.Alpha = alpha
}

// IsTransparent reports whether the material needs blending.
func (m *Material) IsTransparent() bool {
	return m.Alpha < 1.0
}

// SetGlossy switches to the glossy shading preset.
func (m *Material) SetGlossy(r, g, b float32) {
	m.BaseColor = mgl32.Vec3{r, g, b}
	m.Shading = GlossyShadingConfig()
}

// SetMatte switches to the matte shading preset.
func (m *Material) SetMatte(r, g, b float32) {
	m.BaseColor = mgl32.Vec3{r, g, b}
	m.Shading = MatteShadingConfig()
}

// SetGlass makes a glossy translucent material.
func (m *Material) SetGlass(r, g, b, alpha float32) {
	m.SetGlossy(r, g, b)
	m.SetAlpha(alpha)
}

// ColorSource is the base-color variant of a material: either a uniform
// color or a texture lookup. It is resolved before any lighting math.
type ColorSource interface {
	BaseColorAt(uv mgl32.Vec2) mgl32.Vec3
}

// UniformColor ignores the texture coordinate.
type UniformColor struct {
	Color mgl32.Vec3
}

func (u UniformColor) BaseColorAt(mgl32.Vec2) mgl32.Vec3 {
	return u.Color
}

// TexturedColor samples a texture and keeps its color channels.
type TexturedColor struct {
	Sampler Sampler
}

func (t TexturedColor) BaseColorAt(uv mgl32.Vec2) mgl32.Vec3 {
	return t.Sampler.Sample(uv).Vec3()
}

// ColorSource resolves the base-color switch. UseTexture with no sampler
// bound falls back to the uniform color.
func (m *Material) ColorSource() ColorSource {
	if m.UseTexture && m.Texture != nil {
		return TexturedColor{Sampler: m.Texture}
	}
	return UniformColor{Color: m.BaseColor}
}
