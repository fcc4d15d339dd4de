package scene

import (
	"GopherShade/internal/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Pick returns the index of the nearest object under a pixel, or -1.
// Objects are tested against their triangles in world space.
func (s *Scene) Pick(screenX, screenY float32, width, height int) int {
	return s.pickRay(renderer.ScreenToRay(s.Camera, screenX, screenY, width, height))
}

// PickCenter picks along the camera's view direction.
func (s *Scene) PickCenter() int {
	return s.pickRay(renderer.Ray{Origin: s.Camera.Position, Direction: s.Camera.Front})
}

func (s *Scene) pickRay(ray renderer.Ray) int {
	best, bestIndex := float32(math32.MaxFloat32), -1
	for i, o := range s.Objects {
		hit, ok := renderer.RayIntersectMesh(ray, o.Mesh, o.Transform.ModelMatrix())
		if ok && hit.Distance < best {
			best, bestIndex = hit.Distance, i
		}
	}
	return bestIndex
}

// ScreenToFloor intersects a pixel's ray with the y=0 plane.
func (s *Scene) ScreenToFloor(screenX, screenY float32, width, height int) (mgl32.Vec3, bool) {
	ray := renderer.ScreenToRay(s.Camera, screenX, screenY, width, height)
	if math32.Abs(ray.Direction.Y()) < 1e-6 {
		return mgl32.Vec3{}, false
	}
	t := -ray.Origin.Y() / ray.Direction.Y()
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	return ray.At(t), true
}
