package renderer

import (
	"context"

	"GopherShade/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MaxLights is the fixed capacity of a LightSet.
const MaxLights = 8

var Debug bool = false
var FrustumCullingEnabled bool = true
var FaceCullingEnabled bool = false
var DepthTestEnabled bool = true

// Light is a point light. Color is an intensity and is not clamped.
type Light struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// LightSet is a bounded light sequence with an explicit active count.
// Count may claim more than MaxLights; only Active() lights are ever read.
type LightSet struct {
	Lights [MaxLights]Light
	Count  int
}

// NewLightSet copies up to MaxLights lights. Extra lights are dropped.
func NewLightSet(lights ...Light) *LightSet {
	ls := &LightSet{}
	for _, l := range lights {
		ls.Add(l)
	}
	return ls
}

// Add appends a light and reports whether it fit.
func (ls *LightSet) Add(l Light) bool {
	if ls.Count < 0 {
		ls.Count = 0
	}
	if ls.Count >= MaxLights {
		logger.Log.Debug("Light set full, dropping light",
			zap.Int("capacity", MaxLights),
			zap.Float32("x", l.Position.X()),
			zap.Float32("y", l.Position.Y()),
			zap.Float32("z", l.Position.Z()))
		return false
	}
	ls.Lights[ls.Count] = l
	ls.Count++
	return true
}

// Active returns min(Count, MaxLights), never negative.
func (ls *LightSet) Active() int {
	if ls == nil || ls.Count <= 0 {
		return 0
	}
	if ls.Count > MaxLights {
		return MaxLights
	}
	return ls.Count
}

// First returns the first light and whether there is one.
func (ls *LightSet) First() (Light, bool) {
	if ls.Active() == 0 {
		return Light{}, false
	}
	return ls.Lights[0], true
}

// Reset drops all lights.
func (ls *LightSet) Reset() {
	ls.Count = 0
	ls.Lights = [MaxLights]Light{}
}

// DrawCall binds everything one draw shares across its vertices and fragments.
// None of it may be mutated while the draw is running.
type DrawCall struct {
	Mesh       *Mesh
	Transforms TransformSet
	Camera     mgl32.Vec3
	Lights     *LightSet
	Material   *Material
	Wireframe  bool
}

// UnlitCall draws a mesh in one flat color with no lighting.
type UnlitCall struct {
	Mesh       *Mesh
	Transforms TransformSet
	Color      mgl32.Vec4
	Wireframe  bool
}

// Render is implemented by draw drivers that rasterize draw calls.
type Render interface {
	Draw(ctx context.Context, call DrawCall) error
	DrawUnlit(ctx context.Context, call UnlitCall) error
}
