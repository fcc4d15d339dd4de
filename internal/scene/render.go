package scene

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"GopherShade/internal/logger"
	"GopherShade/internal/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var ErrUnknownObject = errors.New("unknown scene object")

// Target is a draw driver that can also be cleared between frames.
type Target interface {
	renderer.Render
	Clear(color mgl32.Vec4)
}

// RenderOptions control one frame.
type RenderOptions struct {
	Time          float32 // seconds, drives the orbiting light
	Highlight     bool    // outline the selected object
	ShowOrbitLamp bool    // draw a marker at the orbiting light
}

// Render draws one frame: clear, opaque objects and light markers in scene
// order, translucent objects back to front, then the selection outline.
func (s *Scene) Render(ctx context.Context, target Target, opts RenderOptions) error {
	target.Clear(s.Background)
	lights := s.CollectLights(opts.Time)

	var frustum renderer.Frustum
	if s.Rendering.FrustumCulling {
		frustum = s.Camera.CalculateFrustum()
	}

	var opaque, transparent []*Object
	skipped := 0
	for _, o := range s.Objects {
		if o.Mesh == nil {
			continue
		}
		if s.Rendering.FrustumCulling && !s.visible(&frustum, o) {
			skipped++
			continue
		}
		if o.IsTransparent() {
			transparent = append(transparent, o)
		} else {
			opaque = append(opaque, o)
		}
	}

	// Farthest first so nearer glass blends over what is behind it
	eye := s.Camera.Position
	sort.SliceStable(transparent, func(i, j int) bool {
		di := transparent[i].Transform.Position.Sub(eye).LenSqr()
		dj := transparent[j].Transform.Position.Sub(eye).LenSqr()
		return di > dj
	})

	logger.Log.Debug("Rendering frame",
		zap.Int("opaque", len(opaque)),
		zap.Int("transparent", len(transparent)),
		zap.Int("frustumCulled", skipped),
		zap.Int("lights", lights.Active()),
		zap.Float32("time", opts.Time))

	for _, o := range opaque {
		if err := s.drawObject(ctx, target, o, lights); err != nil {
			return err
		}
	}
	if opts.ShowOrbitLamp && s.Orbit.Enabled {
		marker := renderer.NewTransform()
		marker.Position = s.Orbit.PositionAt(opts.Time)
		err := target.DrawUnlit(ctx, renderer.UnlitCall{
			Mesh:       s.orbitMarker,
			Transforms: s.Camera.TransformSet(marker.ModelMatrix()),
			Color:      s.Orbit.Color.Vec4(1),
		})
		if err != nil {
			return fmt.Errorf("draw orbit light marker: %w", err)
		}
	}
	for _, o := range transparent {
		if err := s.drawObject(ctx, target, o, lights); err != nil {
			return err
		}
	}

	if sel, ok := s.SelectedObject(); ok && opts.Highlight && sel.Mesh != nil {
		err := target.DrawUnlit(ctx, renderer.UnlitCall{
			Mesh:       sel.Mesh,
			Transforms: s.Camera.TransformSet(sel.Transform.ModelMatrix()),
			Color:      HighlightColor,
			Wireframe:  true,
		})
		if err != nil {
			return fmt.Errorf("draw highlight for %s: %w", sel.Name, err)
		}
	}
	return nil
}

func (s *Scene) drawObject(ctx context.Context, target Target, o *Object, lights *renderer.LightSet) error {
	ts := s.Camera.TransformSet(o.Transform.ModelMatrix())
	var err error
	if o.IsLight {
		err = target.DrawUnlit(ctx, renderer.UnlitCall{
			Mesh:       o.Mesh,
			Transforms: ts,
			Color:      o.LightColor.Vec4(1),
		})
	} else {
		err = target.Draw(ctx, renderer.DrawCall{
			Mesh:       o.Mesh,
			Transforms: ts,
			Camera:     s.Camera.Position,
			Lights:     lights,
			Material:   o.Material,
		})
	}
	if err != nil {
		return fmt.Errorf("draw %s: %w", o.Name, err)
	}
	return nil
}

// visible tests the object's world bounding sphere against the frustum.
func (s *Scene) visible(f *renderer.Frustum, o *Object) bool {
	center, radius := o.Mesh.BoundingSphere()
	model := o.Transform.ModelMatrix()
	worldCenter := model.Mul4x1(center.Vec4(1)).Vec3()
	return f.IntersectsSphere(worldCenter, radius*maxAbsScale(o.Transform.Scale))
}

// maxAbsScale is the largest stretch of a scale; mirroring does not shrink it.
func maxAbsScale(scale mgl32.Vec3) float32 {
	return math32.Max(math32.Abs(scale.X()), math32.Max(math32.Abs(scale.Y()), math32.Abs(scale.Z())))
}
