// Package scene holds the objects, lights and camera of one frame and
// drives a renderer.Render target over them.
package scene

import (
	"fmt"

	"GopherShade/internal/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Object kinds as they appear in scene files.
const (
	KindCube     = "cube"
	KindTriangle = "triangle"
	KindFloor    = "floor"
	KindSphere   = "sphere"
	KindLight    = "light"
	KindMesh     = "mesh"
	KindOBJ      = "obj"
)

var (
	DefaultBackground = mgl32.Vec4{0.08, 0.08, 0.12, 1}
	HighlightColor    = mgl32.Vec4{0, 1, 0.4, 1}

	DefaultCubeColor     = mgl32.Vec3{0.49, 0.48, 1.0}
	DefaultTriangleColor = mgl32.Vec3{1.0, 0.4, 0.2}
	DefaultFloorColor    = mgl32.Vec3{0.35, 0.35, 0.4}
	DefaultSphereColor   = mgl32.Vec3{0.8, 0.8, 0.8}
	DefaultModelColor    = mgl32.Vec3{0.8, 0.8, 0.8}
	DefaultLightColor    = mgl32.Vec3{1.0, 1.0, 0.9}
)

const (
	lightMarkerRadius = 0.3
	orbitMarkerRadius = 0.15
)

// Object is one named renderable. Light objects are drawn as unlit markers
// and also contribute a point light.
type Object struct {
	// HOT DATA - read every frame
	Mesh           *renderer.Mesh
	Transform      renderer.Transform
	Material       *renderer.Material
	IsLight        bool
	LightColor     mgl32.Vec3
	LightIntensity float32

	// COLD DATA
	Name      string
	Kind      string
	ModelPath string     // source of a KindMesh or KindOBJ object
	Euler     mgl32.Vec3 // rotation in degrees as authored
	Folder    string
	Noise     *SceneNoise // procedural texture parameters, kept for Save
}

// Light returns the point light this object emits.
func (o *Object) Light() renderer.Light {
	return renderer.Light{
		Position: o.Transform.Position,
		Color:    o.LightColor.Mul(o.LightIntensity),
	}
}

// IsTransparent reports whether the object needs the blended pass.
func (o *Object) IsTransparent() bool {
	return !o.IsLight && o.Material != nil && o.Material.IsTransparent()
}

// OrbitLight circles the Y axis, always first in the light set.
type OrbitLight struct {
	Enabled bool
	Radius  float32
	Height  float32
	Speed   float32 // radians per second
	Color   mgl32.Vec3
}

func DefaultOrbitLight() OrbitLight {
	return OrbitLight{
		Enabled: true,
		Radius:  3,
		Height:  2.5,
		Speed:   0.8,
		Color:   mgl32.Vec3{1, 1, 1},
	}
}

// PositionAt returns the light position at time t in seconds.
func (o OrbitLight) PositionAt(t float32) mgl32.Vec3 {
	angle := t * o.Speed
	return mgl32.Vec3{math32.Cos(angle) * o.Radius, o.Height, math32.Sin(angle) * o.Radius}
}

// RenderSettings are the per-scene pipeline toggles.
type RenderSettings struct {
	DepthTest      bool
	FaceCulling    bool
	FrustumCulling bool
	Wireframe      bool
}

// DefaultRenderSettings mirrors the renderer package toggles.
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{
		DepthTest:      renderer.DepthTestEnabled,
		FaceCulling:    renderer.FaceCullingEnabled,
		FrustumCulling: renderer.FrustumCullingEnabled,
	}
}

// Scene is everything needed to render one frame.
type Scene struct {
	Objects    []*Object
	Camera     *renderer.Camera
	Orbit      OrbitLight
	Background mgl32.Vec4
	Selected   int // index into Objects, -1 for none
	Rendering  RenderSettings

	orbitMarker *renderer.Mesh
}

// New returns an empty scene with the default camera and orbiting light.
func New(width, height int) *Scene {
	return &Scene{
		Camera:      renderer.NewDefaultCamera(int32(width), int32(height)),
		Orbit:       DefaultOrbitLight(),
		Background:  DefaultBackground,
		Selected:    -1,
		Rendering:   DefaultRenderSettings(),
		orbitMarker: renderer.NewUVSphere(orbitMarkerRadius, 10, 16),
	}
}

// Default is a floor, a cube and one light object, lit together with the
// orbiting light.
func Default(width, height int) *Scene {
	s := New(width, height)
	s.Camera.Position = mgl32.Vec3{3, 3, 5}
	s.Camera.LookAt(mgl32.Vec3{0, 0.5, 0})

	floor := NewObject("Floor", KindFloor, DefaultFloorColor)
	cube := NewObject("Cube", KindCube, DefaultCubeColor)
	cube.Transform.SetPosition(0, 0.5, 0)
	lamp := NewLight("Lamp", mgl32.Vec3{-2, 1.5, 1.5}, mgl32.Vec3{1.0, 0.6, 0.3}, 0.8)

	s.Add(floor, cube, lamp)
	return s
}

// NewObject builds a primitive with an opaque default-shaded material.
// Unknown kinds get a nil mesh.
func NewObject(name, kind string, color mgl32.Vec3) *Object {
	return &Object{
		Name:      name,
		Kind:      kind,
		Mesh:      primitiveMesh(kind),
		Transform: renderer.NewTransform(),
		Material:  renderer.NewMaterial(name, color),
		Folder:    "Scene",
	}
}

// NewLight builds a light object with its marker sphere.
func NewLight(name string, position, color mgl32.Vec3, intensity float32) *Object {
	o := &Object{
		Name:           name,
		Kind:           KindLight,
		Mesh:           primitiveMesh(KindLight),
		Transform:      renderer.NewTransform(),
		IsLight:        true,
		LightColor:     color,
		LightIntensity: intensity,
		Folder:         "Scene",
	}
	o.Transform.Position = position
	return o
}

func primitiveMesh(kind string) *renderer.Mesh {
	switch kind {
	case KindCube:
		return renderer.NewCube()
	case KindTriangle:
		return renderer.NewTriangle()
	case KindFloor:
		return renderer.NewGridFloor(10)
	case KindSphere:
		return renderer.NewUVSphere(0.5, 16, 24)
	case KindLight:
		return renderer.NewUVSphere(lightMarkerRadius, 10, 16)
	}
	return nil
}

func (s *Scene) Add(objects ...*Object) {
	s.Objects = append(s.Objects, objects...)
}

// Find returns the index of the first object with the given name, or -1.
func (s *Scene) Find(name string) int {
	for i, o := range s.Objects {
		if o.Name == name {
			return i
		}
	}
	return -1
}

// Select highlights the named object. An empty name clears the selection.
func (s *Scene) Select(name string) error {
	if name == "" {
		s.Selected = -1
		return nil
	}
	i := s.Find(name)
	if i < 0 {
		return fmt.Errorf("select %q: %w", name, ErrUnknownObject)
	}
	s.Selected = i
	return nil
}

// SelectedObject returns the highlighted object, if any.
func (s *Scene) SelectedObject() (*Object, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Objects) {
		return nil, false
	}
	return s.Objects[s.Selected], true
}

// CollectLights gathers the orbiting light followed by every light object,
// in scene order. Lights past renderer.MaxLights are dropped.
func (s *Scene) CollectLights(t float32) *renderer.LightSet {
	lights := &renderer.LightSet{}
	if s.Orbit.Enabled {
		lights.Add(renderer.Light{Position: s.Orbit.PositionAt(t), Color: s.Orbit.Color})
	}
	for _, o := range s.Objects {
		if o.IsLight {
			lights.Add(o.Light())
		}
	}
	return lights
}

// UniformBlocks packs the per-draw uniforms of every lit object by name,
// as a GPU backend would upload them.
func (s *Scene) UniformBlocks(t float32) map[string]renderer.UniformBlock {
	lights := s.CollectLights(t)
	blocks := make(map[string]renderer.UniformBlock)
	for _, o := range s.Objects {
		if o.IsLight || o.Mesh == nil {
			continue
		}
		mat := o.Material
		if mat == nil {
			mat = renderer.DefaultMaterial
		}
		ts := s.Camera.TransformSet(o.Transform.ModelMatrix())
		blocks[o.Name] = renderer.PackUniforms(ts, s.Camera.Position, lights, mat)
	}
	return blocks
}
