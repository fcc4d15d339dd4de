package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"GopherShade/internal/logger"
	"GopherShade/internal/renderer"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Document describes the scene in its file form. Objects without a file
// representation (a KindMesh object with no model path) are left out.
func (s *Scene) Document() SceneData {
	cam := s.Camera
	target := [3]float32(cam.Position.Add(cam.Front))
	background := [3]float32(s.Background.Vec3())
	depth := s.Rendering.DepthTest
	frustum := s.Rendering.FrustumCulling
	orbitColor := [3]float32(s.Orbit.Color)

	doc := SceneData{
		Camera: &SceneCamera{
			Position: cam.Position,
			Target:   &target,
			FOV:      cam.Fov,
			Near:     cam.Near,
			Far:      cam.Far,
		},
		OrbitLight: &SceneOrbitLight{
			Disabled: !s.Orbit.Enabled,
			Radius:   s.Orbit.Radius,
			Height:   s.Orbit.Height,
			Speed:    s.Orbit.Speed,
			Color:    &orbitColor,
		},
		Rendering: &SceneRenderingConfig{
			Background:     &background,
			DepthTest:      &depth,
			FaceCulling:    s.Rendering.FaceCulling,
			FrustumCulling: &frustum,
			Wireframe:      s.Rendering.Wireframe,
		},
		Objects: make([]SceneObject, 0, len(s.Objects)),
	}
	if sel, ok := s.SelectedObject(); ok {
		doc.Selected = sel.Name
	}

	for _, o := range s.Objects {
		if o.Kind == KindMesh && o.ModelPath == "" {
			continue
		}
		doc.Objects = append(doc.Objects, objectDocument(o))
	}
	return doc
}

func objectDocument(o *Object) SceneObject {
	entry := SceneObject{
		Name:     o.Name,
		Format:   o.Kind,
		Model:    o.ModelPath,
		Position: o.Transform.Position,
		Rotation: o.Euler,
		Scale:    o.Transform.Scale,
		Folder:   o.Folder,
	}
	if o.IsLight {
		color := [3]float32(o.LightColor)
		intensity := o.LightIntensity
		entry.Color = &color
		entry.Intensity = &intensity
		return entry
	}

	mat := o.Material
	if mat == nil {
		return entry
	}
	color := [3]float32(mat.BaseColor)
	entry.Color = &color
	if mat.Alpha < 1 {
		alpha := mat.Alpha
		entry.Alpha = &alpha
	}
	if mat.Shading != renderer.DefaultShadingConfig() {
		entry.Shading = shadingDocument(mat.Shading)
	}
	switch {
	case mat.UseTexture && mat.TexturePath != "":
		entry.Texture = mat.TexturePath
	case mat.UseTexture && o.Noise != nil:
		entry.Noise = o.Noise
	}
	return entry
}

// Save writes the scene as JSON or YAML depending on the extension.
func (s *Scene) Save(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	doc := s.Document()

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write scene %s: %w", path, err)
	}
	logger.Log.Info("Scene saved",
		zap.String("path", path),
		zap.Int("objects", len(doc.Objects)))
	return nil
}
