package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"GopherShade/internal/loader"
	"GopherShade/internal/logger"
	"GopherShade/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownMesh   = errors.New("unknown mesh kind")
	ErrUnknownFormat = errors.New("unknown scene file format")
)

// Format is the encoding of a scene file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// SceneData is the on-disk scene description.
type SceneData struct {
	Camera     *SceneCamera          `json:"camera,omitempty" yaml:"camera,omitempty"`
	OrbitLight *SceneOrbitLight      `json:"orbit_light,omitempty" yaml:"orbit_light,omitempty"`
	Rendering  *SceneRenderingConfig `json:"rendering,omitempty" yaml:"rendering,omitempty"`
	Selected   string                `json:"selected,omitempty" yaml:"selected,omitempty"`
	Objects    []SceneObject         `json:"objects" yaml:"objects"`
}

type SceneCamera struct {
	Position [3]float32  `json:"position" yaml:"position"`
	Target   *[3]float32 `json:"target,omitempty" yaml:"target,omitempty"` // look-at point, overrides rotation
	Rotation [3]float32  `json:"rotation" yaml:"rotation"`                   // pitch, yaw in degrees
	FOV      float32     `json:"fov,omitempty" yaml:"fov,omitempty"`
	Near     float32     `json:"near,omitempty" yaml:"near,omitempty"`
	Far      float32     `json:"far,omitempty" yaml:"far,omitempty"`
}

type SceneOrbitLight struct {
	Disabled bool        `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Radius   float32     `json:"radius,omitempty" yaml:"radius,omitempty"`
	Height   float32     `json:"height,omitempty" yaml:"height,omitempty"`
	Speed    float32     `json:"speed,omitempty" yaml:"speed,omitempty"`
	Color    *[3]float32 `json:"color,omitempty" yaml:"color,omitempty"`
}

type SceneRenderingConfig struct {
	Background     *[3]float32 `json:"background,omitempty" yaml:"background,omitempty"`
	DepthTest      *bool       `json:"depth_test,omitempty" yaml:"depth_test,omitempty"`
	FaceCulling    bool        `json:"face_culling" yaml:"face_culling"`
	FrustumCulling *bool       `json:"frustum_culling,omitempty" yaml:"frustum_culling,omitempty"`
	Wireframe      bool        `json:"wireframe" yaml:"wireframe"`
}

type SceneObject struct {
	Name     string     `json:"name" yaml:"name"`
	Format   string     `json:"format" yaml:"format"`
	Model    string     `json:"model,omitempty" yaml:"model,omitempty"` // .mesh or .obj file
	Position [3]float32 `json:"position" yaml:"position"`
	Rotation [3]float32 `json:"rotation" yaml:"rotation"` // pitch, yaw, roll in degrees
	Scale    [3]float32 `json:"scale" yaml:"scale"`

	Color     *[3]float32 `json:"color,omitempty" yaml:"color,omitempty"`
	Alpha     *float32    `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Intensity *float32    `json:"intensity,omitempty" yaml:"intensity,omitempty"`

	Texture string        `json:"texture,omitempty" yaml:"texture,omitempty"`
	Noise   *SceneNoise   `json:"noise,omitempty" yaml:"noise,omitempty"`
	Preset  string        `json:"preset,omitempty" yaml:"preset,omitempty"` // "glossy" or "matte"
	Shading *SceneShading `json:"shading,omitempty" yaml:"shading,omitempty"`

	Folder string `json:"folder,omitempty" yaml:"folder,omitempty"`
}

// SceneShading overrides single Blinn-Phong constants. Omitted fields keep
// the preset's (or the default) value.
type SceneShading struct {
	AmbientStrength  *float32                `json:"ambient_strength,omitempty" yaml:"ambient_strength,omitempty"`
	SpecularStrength *float32                `json:"specular_strength,omitempty" yaml:"specular_strength,omitempty"`
	Shininess        *float32                `json:"shininess,omitempty" yaml:"shininess,omitempty"`
	Ambient          *renderer.AmbientPolicy `json:"ambient_policy,omitempty" yaml:"ambient_policy,omitempty"`
	AmbientColor     *[3]float32             `json:"ambient_color,omitempty" yaml:"ambient_color,omitempty"`
}

// apply layers the set fields over base.
func (sh *SceneShading) apply(base renderer.ShadingConfig) renderer.ShadingConfig {
	if sh.AmbientStrength != nil {
		base.AmbientStrength = *sh.AmbientStrength
	}
	if sh.SpecularStrength != nil {
		base.SpecularStrength = *sh.SpecularStrength
	}
	if sh.Shininess != nil {
		base.Shininess = *sh.Shininess
	}
	if sh.Ambient != nil {
		base.Ambient = *sh.Ambient
	}
	if sh.AmbientColor != nil {
		base.AmbientColor = *sh.AmbientColor
	}
	return base
}

func shadingDocument(c renderer.ShadingConfig) *SceneShading {
	color := [3]float32(c.AmbientColor)
	return &SceneShading{
		AmbientStrength:  &c.AmbientStrength,
		SpecularStrength: &c.SpecularStrength,
		Shininess:        &c.Shininess,
		Ambient:          &c.Ambient,
		AmbientColor:     &color,
	}
}

// SceneNoise describes a procedural Perlin texture.
type SceneNoise struct {
	Low   [3]float32 `json:"low" yaml:"low"`
	High  [3]float32 `json:"high" yaml:"high"`
	Scale float32    `json:"scale" yaml:"scale"`
	Seed  int64      `json:"seed" yaml:"seed"`
}

// Loader builds scenes from files. Textures are shared through its manager
// and meshes read from disk are cached by path.
type Loader struct {
	Textures *renderer.TextureManager
	Width    int
	Height   int

	// RecalculateNormals rebuilds smooth normals for OBJ models.
	RecalculateNormals bool

	meshes map[string]*renderer.Mesh
	models map[string]*loader.Model
}

func NewLoader(width, height int) *Loader {
	return &Loader{
		Textures: renderer.NewTextureManager(),
		Width:    width,
		Height:   height,
		meshes:   make(map[string]*renderer.Mesh),
		models:   make(map[string]*loader.Model),
	}
}

// Load reads a JSON or YAML scene. Relative texture and model paths are
// resolved against the scene file's directory.
func Load(path string, width, height int) (*Scene, error) {
	return NewLoader(width, height).Load(path)
}

func (l *Loader) Load(path string) (*Scene, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	s, err := l.Parse(data, format, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", path, err)
	}
	logger.Log.Info("Scene loaded",
		zap.String("path", path),
		zap.Int("objects", len(s.Objects)))
	return s, nil
}

// Parse decodes scene data and builds the scene.
func (l *Loader) Parse(data []byte, format Format, baseDir string) (*Scene, error) {
	var doc SceneData
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return l.Build(doc, baseDir)
}

// Build turns a decoded description into a scene.
func (l *Loader) Build(doc SceneData, baseDir string) (*Scene, error) {
	s := New(l.Width, l.Height)

	if c := doc.Camera; c != nil {
		applyCamera(s.Camera, c)
	}
	if o := doc.OrbitLight; o != nil {
		s.Orbit.Enabled = !o.Disabled
		if o.Radius != 0 {
			s.Orbit.Radius = o.Radius
		}
		if o.Height != 0 {
			s.Orbit.Height = o.Height
		}
		if o.Speed != 0 {
			s.Orbit.Speed = o.Speed
		}
		if o.Color != nil {
			s.Orbit.Color = *o.Color
		}
	}
	if r := doc.Rendering; r != nil {
		if r.Background != nil {
			s.Background = mgl32.Vec3(*r.Background).Vec4(1)
		}
		if r.DepthTest != nil {
			s.Rendering.DepthTest = *r.DepthTest
		}
		if r.FrustumCulling != nil {
			s.Rendering.FrustumCulling = *r.FrustumCulling
		}
		s.Rendering.FaceCulling = r.FaceCulling
		s.Rendering.Wireframe = r.Wireframe
	}

	for _, entry := range doc.Objects {
		obj, err := l.buildObject(entry, baseDir)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			continue
		}
		s.Add(obj)
	}

	if err := s.Select(doc.Selected); err != nil {
		return nil, err
	}
	return s, nil
}

func applyCamera(cam *renderer.Camera, c *SceneCamera) {
	cam.Position = c.Position
	if c.FOV > 0 {
		cam.Fov = c.FOV
	}
	if c.Near > 0 {
		cam.Near = c.Near
	}
	if c.Far > 0 {
		cam.Far = c.Far
	}
	cam.UpdateProjection()

	if c.Target != nil {
		cam.LookAt(*c.Target)
		return
	}
	if c.Rotation != ([3]float32{}) {
		cam.Pitch = c.Rotation[0]
		cam.Yaw = c.Rotation[1]
		cam.ProcessMouseMovement(0, 0, true)
	}
}

func (l *Loader) buildObject(entry SceneObject, baseDir string) (*Object, error) {
	name := entry.Name
	if name == "" {
		name = "unnamed"
	}

	var obj *Object
	switch entry.Format {
	case KindLight:
		color := DefaultLightColor
		if entry.Color != nil {
			color = *entry.Color
		}
		intensity := float32(1)
		if entry.Intensity != nil {
			intensity = *entry.Intensity
		}
		obj = NewLight(name, entry.Position, color, intensity)

	case KindCube, KindTriangle, KindFloor, KindSphere:
		obj = NewObject(name, entry.Format, defaultColor(entry.Format))

	case KindMesh:
		mesh, err := l.loadMesh(resolve(baseDir, entry.Model))
		if errors.Is(err, os.ErrNotExist) {
			logger.Log.Warn("Model not found, skipping object",
				zap.String("name", name),
				zap.String("model", entry.Model))
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", name, err)
		}
		obj = NewObject(name, KindMesh, DefaultModelColor)
		obj.Mesh = mesh
		obj.ModelPath = entry.Model

	case KindOBJ:
		model, err := l.loadOBJ(resolve(baseDir, entry.Model))
		if errors.Is(err, os.ErrNotExist) {
			logger.Log.Warn("Model not found, skipping object",
				zap.String("name", name),
				zap.String("model", entry.Model))
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", name, err)
		}
		obj = NewObject(name, KindOBJ, DefaultModelColor)
		obj.Mesh = model.Mesh
		obj.ModelPath = entry.Model
		if err := l.applyMTL(obj.Material, model); err != nil {
			return nil, fmt.Errorf("object %s: %w", name, err)
		}

	default:
		return nil, fmt.Errorf("object %s: %w: %q", name, ErrUnknownMesh, entry.Format)
	}

	obj.Transform.Position = entry.Position
	obj.Transform.Scale = entry.Scale
	if obj.Transform.Scale == (mgl32.Vec3{}) {
		obj.Transform.Scale = mgl32.Vec3{1, 1, 1}
	}
	if entry.Rotation != ([3]float32{}) {
		obj.Euler = entry.Rotation
		obj.Transform.RotateEuler(entry.Rotation[0], entry.Rotation[1], entry.Rotation[2])
	}
	if entry.Folder != "" {
		obj.Folder = entry.Folder
	}

	if obj.IsLight {
		return obj, nil
	}
	if err := l.applyMaterial(obj, entry, baseDir); err != nil {
		return nil, fmt.Errorf("object %s: %w", name, err)
	}
	return obj, nil
}

func (l *Loader) applyMaterial(obj *Object, entry SceneObject, baseDir string) error {
	mat := obj.Material
	switch entry.Preset {
	case "glossy":
		mat.Shading = renderer.GlossyShadingConfig()
	case "matte":
		mat.Shading = renderer.MatteShadingConfig()
	}
	if entry.Shading != nil {
		mat.Shading = entry.Shading.apply(mat.Shading.Resolved())
	}
	if entry.Color != nil {
		mat.BaseColor = *entry.Color
	}
	if entry.Alpha != nil {
		mat.SetAlpha(mgl32.Clamp(*entry.Alpha, 0, 1))
	}

	switch {
	case entry.Texture != "":
		_, tex, err := l.Textures.LoadTexture(resolve(baseDir, entry.Texture))
		if err != nil {
			return err
		}
		mat.SetTexture(tex, entry.Texture)
	case entry.Noise != nil:
		n := entry.Noise
		scale := n.Scale
		if scale == 0 {
			scale = 4
		}
		mat.SetTexture(renderer.NewNoiseTexture(n.Low, n.High, scale, n.Seed), "")
		obj.Noise = n
	}
	return nil
}

// applyMTL takes the color, opacity and diffuse map of the model's first
// material group. Scene entries override it afterwards.
func (l *Loader) applyMTL(mat *renderer.Material, model *loader.Model) error {
	mtl, ok := model.PrimaryMaterial()
	if !ok {
		return nil
	}
	mat.BaseColor = mtl.Diffuse
	mat.SetAlpha(mgl32.Clamp(mtl.Alpha, 0, 1))
	if mtl.Shininess > 0 {
		mat.Shading.Shininess = mtl.Shininess
	}
	if mtl.DiffuseMap != "" {
		_, tex, err := l.Textures.LoadTexture(mtl.DiffuseMap)
		if err != nil {
			return err
		}
		// Left out of TexturePath so Save does not copy it into the scene
		mat.SetTexture(tex, "")
	}
	return nil
}

func (l *Loader) loadOBJ(path string) (*loader.Model, error) {
	if model, ok := l.models[path]; ok {
		return model, nil
	}
	model, err := loader.LoadModel(path, l.RecalculateNormals)
	if err != nil {
		return nil, err
	}
	l.models[path] = model
	return model, nil
}

func (l *Loader) loadMesh(path string) (*renderer.Mesh, error) {
	if mesh, ok := l.meshes[path]; ok {
		return mesh, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mesh, err := renderer.DecodeMeshBinary(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	l.meshes[path] = mesh
	logger.Log.Debug("Mesh loaded",
		zap.String("path", path),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("triangles", mesh.TriangleCount()))
	return mesh, nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func defaultColor(kind string) mgl32.Vec3 {
	switch kind {
	case KindCube:
		return DefaultCubeColor
	case KindTriangle:
		return DefaultTriangleColor
	case KindFloor:
		return DefaultFloorColor
	case KindSphere:
		return DefaultSphereColor
	}
	return DefaultModelColor
}
