package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half-line. Direction need not be unit length; hit distances are
// in multiples of it.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// At returns the point t directions along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Hit is the nearest intersection in front of a ray origin.
type Hit struct {
	Distance float32
	Point    mgl32.Vec3
}

// RayIntersectSphere returns the nearest hit with positive distance.
func RayIntersectSphere(ray Ray, center mgl32.Vec3, radius float32) (Hit, bool) {
	oc := ray.Origin.Sub(center)
	a := ray.Direction.Dot(ray.Direction)
	b := 2.0 * oc.Dot(ray.Direction)
	c := oc.Dot(oc) - radius*radius

	discriminant := b*b - 4*a*c
	if discriminant < 0 || a == 0 {
		return Hit{}, false
	}

	sqrtDisc := math32.Sqrt(discriminant)
	near := (-b - sqrtDisc) / (2 * a)
	far := (-b + sqrtDisc) / (2 * a)

	t := near
	if t <= 0 {
		// Origin inside the sphere
		t = far
	}
	if t <= 0 {
		return Hit{}, false
	}
	return Hit{Distance: t, Point: ray.At(t)}, true
}

// RayIntersectTriangle is Moller-Trumbore. Both faces count as hits.
func RayIntersectTriangle(ray Ray, v0, v1, v2 mgl32.Vec3) (Hit, bool) {
	const epsilon = 1e-7

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return Hit{}, false // parallel
	}

	f := 1.0 / a
	s := ray.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return Hit{}, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return Hit{}, false
	}

	t := f * edge2.Dot(q)
	if t <= epsilon {
		return Hit{}, false
	}
	return Hit{Distance: t, Point: ray.At(t)}, true
}

// RayIntersectMesh tests the bounding sphere first, then every triangle in
// world space.
func RayIntersectMesh(ray Ray, mesh *Mesh, model mgl32.Mat4) (Hit, bool) {
	if mesh == nil || mesh.TriangleCount() == 0 {
		return Hit{}, false
	}

	center, radius := mesh.BoundingSphere()
	worldCenter := model.Mul4x1(center.Vec4(1)).Vec3()
	if _, ok := RayIntersectSphere(ray, worldCenter, radius*maxAxisScale(model)); !ok {
		return Hit{}, false
	}

	world := func(i int) mgl32.Vec3 {
		return model.Mul4x1(mesh.Vertex(i).Position.Vec4(1)).Vec3()
	}
	best, found := Hit{}, false
	for i := 0; i < mesh.TriangleCount(); i++ {
		tri := mesh.Triangle(i)
		hit, ok := RayIntersectTriangle(ray, world(tri[0]), world(tri[1]), world(tri[2]))
		if ok && (!found || hit.Distance < best.Distance) {
			best, found = hit, true
		}
	}
	return best, found
}

func maxAxisScale(m mgl32.Mat4) float32 {
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	return math32.Max(sx, math32.Max(sy, sz))
}

// ScreenToRay turns a pixel position (origin top-left) into a world-space
// ray from the camera through that pixel's center.
func ScreenToRay(camera *Camera, screenX, screenY float32, width, height int) Ray {
	ndcX := 2.0*screenX/float32(width) - 1.0
	ndcY := 1.0 - 2.0*screenY/float32(height)

	invViewProjection := camera.GetViewProjection().Inv()
	near := invViewProjection.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := invViewProjection.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	nearPoint := near.Vec3().Mul(1 / near.W())
	farPoint := far.Vec3().Mul(1 / far.W())

	return Ray{
		Origin:    camera.Position,
		Direction: farPoint.Sub(nearPoint).Normalize(),
	}
}
