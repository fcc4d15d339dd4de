// Package raster is a CPU draw driver: it runs the vertex and fragment
// stages of the renderer package over triangles and writes a Framebuffer.
package raster

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"GopherShade/internal/logger"
	"GopherShade/internal/renderer"

	"github.com/alitto/pond/v2"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	// Clipping keeps every vertex at or above this clip w.
	nearEpsilon = 1e-5

	defaultBandHeight = 16
	vertexChunk       = 512

	// Wireframe keeps pixels closer than this to an edge, in pixels.
	wireframeWidth = 1.0
)

var (
	ErrNoMesh       = errors.New("draw call has no mesh")
	ErrInvalidIndex = errors.New("triangle index out of range")
)

// Options are fixed for the lifetime of a Rasterizer.
type Options struct {
	Workers       int  // pool size, defaults to the CPU count
	BandHeight    int  // rows per fragment task
	CullBackFaces bool // drop clockwise triangles
	DepthTest     bool // less-or-equal test and depth writes
	Wireframe     bool // edges only for every draw
}

// DefaultOptions follows the renderer package toggles.
func DefaultOptions() Options {
	return Options{
		Workers:       runtime.NumCPU(),
		BandHeight:    defaultBandHeight,
		CullBackFaces: renderer.FaceCullingEnabled,
		DepthTest:     renderer.DepthTestEnabled,
		Wireframe:     renderer.Debug,
	}
}

// Rasterizer draws into one Framebuffer. Fragment work is split into
// horizontal bands that never share a pixel, so bands run on the pool
// without locking. Draws must not be issued concurrently.
type Rasterizer struct {
	fb   *Framebuffer
	opts Options
	pool pond.Pool
}

var _ renderer.Render = (*Rasterizer)(nil)

func New(fb *Framebuffer, opts Options) *Rasterizer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.BandHeight <= 0 {
		opts.BandHeight = defaultBandHeight
	}
	return &Rasterizer{
		fb:   fb,
		opts: opts,
		pool: pond.NewPool(opts.Workers),
	}
}

func (r *Rasterizer) Framebuffer() *Framebuffer { return r.fb }

func (r *Rasterizer) Options() Options { return r.opts }

// Clear resets the whole target before a frame.
func (r *Rasterizer) Clear(color mgl32.Vec4) {
	r.fb.Clear(color)
}

// Close stops the worker pool after queued work finishes.
func (r *Rasterizer) Close() {
	r.pool.StopAndWait()
}

// shadeFunc is the fragment program of one draw.
type shadeFunc func(in renderer.FragmentInput) mgl32.Vec4

type pipeline struct {
	name      string
	shade     shadeFunc
	blend     bool
	wireframe bool
}

// Draw runs the lit Blinn-Phong program. A nil material draws with
// renderer.DefaultMaterial; translucent materials blend over the target.
func (r *Rasterizer) Draw(ctx context.Context, call renderer.DrawCall) error {
	if call.Mesh == nil {
		return ErrNoMesh
	}
	mat := call.Material
	if mat == nil {
		mat = renderer.DefaultMaterial
	}
	camera, lights := call.Camera, call.Lights

	return r.draw(ctx, call.Mesh, call.Transforms, pipeline{
		name: call.Mesh.Name,
		shade: func(in renderer.FragmentInput) mgl32.Vec4 {
			return renderer.ShadeFragment(in, camera, lights, mat)
		},
		blend:     mat.IsTransparent(),
		wireframe: call.Wireframe || r.opts.Wireframe,
	})
}

// DrawUnlit fills with a constant color, used for light markers and
// selection outlines.
func (r *Rasterizer) DrawUnlit(ctx context.Context, call renderer.UnlitCall) error {
	if call.Mesh == nil {
		return ErrNoMesh
	}
	color := call.Color

	return r.draw(ctx, call.Mesh, call.Transforms, pipeline{
		name:      call.Mesh.Name,
		shade:     func(renderer.FragmentInput) mgl32.Vec4 { return color },
		blend:     color[3] < 1,
		wireframe: call.Wireframe || r.opts.Wireframe,
	})
}

func (r *Rasterizer) draw(ctx context.Context, mesh *renderer.Mesh, ts renderer.TransformSet, p pipeline) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	verts, err := r.transformVertices(mesh, ts)
	if err != nil {
		return err
	}
	tris, culled, err := r.setup(mesh, verts)
	if err != nil {
		return err
	}

	logger.Log.Debug("Rasterizing mesh",
		zap.String("mesh", p.name),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Int("visible", len(tris)),
		zap.Int("culled", culled),
		zap.Bool("blend", p.blend),
		zap.Bool("wireframe", p.wireframe))

	if len(tris) == 0 {
		return nil
	}

	group := r.pool.NewGroup()
	for y0 := 0; y0 < r.fb.Height; y0 += r.opts.BandHeight {
		y0, y1 := y0, min(y0+r.opts.BandHeight, r.fb.Height)
		group.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			r.rasterizeBand(tris, y0, y1, &p)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// transformVertices runs the vertex stage over the mesh in parallel chunks.
func (r *Rasterizer) transformVertices(mesh *renderer.Mesh, ts renderer.TransformSet) ([]renderer.VertexOutput, error) {
	prepared := renderer.PrepareTransforms(ts)
	n := mesh.VertexCount()
	out := make([]renderer.VertexOutput, n)

	group := r.pool.NewGroup()
	for start := 0; start < n; start += vertexChunk {
		start, end := start, min(start+vertexChunk, n)
		group.Submit(func() {
			for i := start; i < end; i++ {
				out[i] = prepared.Transform(mesh.Vertex(i))
			}
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// triangle is a screen-space triangle ready for scan conversion, wound so
// that its edge-function area is positive.
type triangle struct {
	screen  [3]mgl32.Vec3 // pixel x, pixel y, depth in [0,1]
	invW    [3]float32
	verts   [3]renderer.VertexOutput
	area    float32
	edgeLen [3]float32 // edge k is opposite vertex k
	topLeft [3]bool

	minX, maxX int
	minY, maxY int
}

func (r *Rasterizer) setup(mesh *renderer.Mesh, verts []renderer.VertexOutput) ([]triangle, int, error) {
	tris := make([]triangle, 0, mesh.TriangleCount())
	culled := 0

	for i := 0; i < mesh.TriangleCount(); i++ {
		idx := mesh.Triangle(i)
		var in [3]renderer.VertexOutput
		for k, vi := range idx {
			if vi < 0 || vi >= len(verts) {
				return nil, 0, fmt.Errorf("%w: triangle %d uses vertex %d of %d", ErrInvalidIndex, i, vi, len(verts))
			}
			in[k] = verts[vi]
		}

		poly := clipNear(in)
		if len(poly) < 3 {
			culled++
			continue
		}
		for j := 1; j+1 < len(poly); j++ {
			t, ok := r.screenTriangle(poly[0], poly[j], poly[j+1])
			if !ok {
				culled++
				continue
			}
			tris = append(tris, t)
		}
	}
	return tris, culled, nil
}

// clipDistances are signed distances to the planes a vertex must not cross
// before the perspective divide: the near plane (z >= -w) and w >= nearEpsilon.
var clipDistances = [...]func(p mgl32.Vec4) float32{
	func(p mgl32.Vec4) float32 { return p.Z() + p.W() },
	func(p mgl32.Vec4) float32 { return p.W() - nearEpsilon },
}

// clipNear clips a triangle in clip space and returns the surviving convex
// polygon in the original winding. It has 0, 3, 4 or 5 vertices.
func clipNear(tri [3]renderer.VertexOutput) []renderer.VertexOutput {
	inside := true
	for _, v := range tri {
		for _, dist := range clipDistances {
			if !(dist(v.ClipPosition) >= 0) {
				inside = false
			}
		}
	}
	poly := tri[:]
	if inside {
		return poly
	}

	for _, dist := range clipDistances {
		if len(poly) == 0 {
			break
		}
		out := make([]renderer.VertexOutput, 0, len(poly)+1)
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			da, db := dist(a.ClipPosition), dist(b.ClipPosition)
			if da >= 0 {
				out = append(out, a)
			}
			if (da >= 0) != (db >= 0) && !math32.IsNaN(da-db) {
				out = append(out, lerpVertex(a, b, da/(da-db)))
			}
		}
		poly = out
	}
	return poly
}

// lerpVertex interpolates every vertex output linearly in clip space.
func lerpVertex(a, b renderer.VertexOutput, t float32) renderer.VertexOutput {
	return renderer.VertexOutput{
		ClipPosition:  a.ClipPosition.Add(b.ClipPosition.Sub(a.ClipPosition).Mul(t)),
		WorldPosition: a.WorldPosition.Add(b.WorldPosition.Sub(a.WorldPosition).Mul(t)),
		WorldNormal:   a.WorldNormal.Add(b.WorldNormal.Sub(a.WorldNormal).Mul(t)),
		TexCoord:      a.TexCoord.Add(b.TexCoord.Sub(a.TexCoord).Mul(t)),
	}
}

// screenTriangle maps a clipped triangle to pixels. It reports false for
// degenerate, back-facing (when culling) or off-screen triangles.
func (r *Rasterizer) screenTriangle(v0, v1, v2 renderer.VertexOutput) (triangle, bool) {
	width, height := float32(r.fb.Width), float32(r.fb.Height)
	var t triangle
	for k, v := range [3]renderer.VertexOutput{v0, v1, v2} {
		w := v.ClipPosition.W()
		if !(w > 0) {
			return t, false
		}
		invW := 1 / w
		ndc := v.ClipPosition.Vec3().Mul(invW)
		t.screen[k] = mgl32.Vec3{
			(ndc.X() + 1) * 0.5 * width,
			(1 - ndc.Y()) * 0.5 * height,
			ndc.Z()*0.5 + 0.5,
		}
		t.invW[k] = invW
		t.verts[k] = v
	}

	// Counter-clockwise in NDC turns clockwise once y points down,
	// which gives front faces a negative area here.
	area := edge(t.screen[0], t.screen[1], t.screen[2])
	if area == 0 || math32.IsNaN(area) {
		return t, false
	}
	if area > 0 && r.opts.CullBackFaces {
		return t, false
	}
	if area < 0 {
		t.screen[1], t.screen[2] = t.screen[2], t.screen[1]
		t.invW[1], t.invW[2] = t.invW[2], t.invW[1]
		t.verts[1], t.verts[2] = t.verts[2], t.verts[1]
		area = -area
	}
	t.area = area

	for k := 0; k < 3; k++ {
		a, b := t.screen[(k+1)%3], t.screen[(k+2)%3]
		t.edgeLen[k] = mgl32.Vec2{b.X() - a.X(), b.Y() - a.Y()}.Len()
		t.topLeft[k] = isTopLeft(a, b)
	}

	minX := math32.Min(t.screen[0].X(), math32.Min(t.screen[1].X(), t.screen[2].X()))
	maxX := math32.Max(t.screen[0].X(), math32.Max(t.screen[1].X(), t.screen[2].X()))
	minY := math32.Min(t.screen[0].Y(), math32.Min(t.screen[1].Y(), t.screen[2].Y()))
	maxY := math32.Max(t.screen[0].Y(), math32.Max(t.screen[1].Y(), t.screen[2].Y()))
	t.minX = max(int(math32.Floor(minX)), 0)
	t.maxX = min(int(math32.Ceil(maxX)), r.fb.Width-1)
	t.minY = max(int(math32.Floor(minY)), 0)
	t.maxY = min(int(math32.Ceil(maxY)), r.fb.Height-1)
	if t.minX > t.maxX || t.minY > t.maxY {
		return t, false
	}
	return t, true
}

// edge is twice the signed area of (a, b, p).
func edge(a, b, p mgl32.Vec3) float32 {
	return (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
}

// isTopLeft reports whether a->b is a top or left edge of a positive-area
// triangle. Pixel centers exactly on such edges belong to the triangle.
func isTopLeft(a, b mgl32.Vec3) bool {
	dx, dy := b.X()-a.X(), b.Y()-a.Y()
	return (dy == 0 && dx > 0) || dy < 0
}

func covers(w float32, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

// rasterizeBand scan-converts every triangle over rows [y0, y1) in draw order.
func (r *Rasterizer) rasterizeBand(tris []triangle, y0, y1 int, p *pipeline) {
	fb := r.fb
	for ti := range tris {
		t := &tris[ti]
		if t.maxY < y0 || t.minY >= y1 {
			continue
		}
		s0, s1, s2 := t.screen[0], t.screen[1], t.screen[2]

		for y := max(t.minY, y0); y <= min(t.maxY, y1-1); y++ {
			py := float32(y) + 0.5
			for x := t.minX; x <= t.maxX; x++ {
				pt := mgl32.Vec3{float32(x) + 0.5, py, 0}
				w0 := edge(s1, s2, pt)
				w1 := edge(s2, s0, pt)
				w2 := edge(s0, s1, pt)
				if !covers(w0, t.topLeft[0]) || !covers(w1, t.topLeft[1]) || !covers(w2, t.topLeft[2]) {
					continue
				}
				if p.wireframe &&
					w0/t.edgeLen[0] >= wireframeWidth &&
					w1/t.edgeLen[1] >= wireframeWidth &&
					w2/t.edgeLen[2] >= wireframeWidth {
					continue
				}

				l0, l1, l2 := w0/t.area, w1/t.area, w2/t.area
				depth := l0*s0.Z() + l1*s1.Z() + l2*s2.Z()
				if depth < 0 || depth > 1 {
					continue
				}
				i := y*fb.Width + x
				if r.opts.DepthTest && depth > fb.Depth[i] {
					continue
				}

				// Perspective-correct weights
				p0, p1, p2 := l0*t.invW[0], l1*t.invW[1], l2*t.invW[2]
				inv := 1 / (p0 + p1 + p2)
				p0, p1, p2 = p0*inv, p1*inv, p2*inv

				v0, v1, v2 := &t.verts[0], &t.verts[1], &t.verts[2]
				color := p.shade(renderer.FragmentInput{
					WorldPosition: weigh3(v0.WorldPosition, v1.WorldPosition, v2.WorldPosition, p0, p1, p2),
					WorldNormal:   weigh3(v0.WorldNormal, v1.WorldNormal, v2.WorldNormal, p0, p1, p2),
					TexCoord:      v0.TexCoord.Mul(p0).Add(v1.TexCoord.Mul(p1)).Add(v2.TexCoord.Mul(p2)),
				})

				if p.blend {
					color = blendOver(color, fb.Color[i])
				}
				fb.Color[i] = color
				if r.opts.DepthTest {
					fb.Depth[i] = depth
				}
			}
		}
	}
}

func weigh3(a, b, c mgl32.Vec3, wa, wb, wc float32) mgl32.Vec3 {
	return a.Mul(wa).Add(b.Mul(wb)).Add(c.Mul(wc))
}

// blendOver is SRC_ALPHA, ONE_MINUS_SRC_ALPHA on all four channels.
func blendOver(src, dst mgl32.Vec4) mgl32.Vec4 {
	a := src[3]
	return src.Mul(a).Add(dst.Mul(1 - a))
}
