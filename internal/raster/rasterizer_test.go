package raster

import (
	"context"
	"errors"
	"testing"

	"GopherShade/internal/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = renderer.TransformSet{
	Model:      mgl32.Ident4(),
	View:       mgl32.Ident4(),
	Projection: mgl32.Ident4(),
}

var black = mgl32.Vec4{0, 0, 0, 1}

// ndcQuad covers the whole viewport at NDC depth z with two
// counter-clockwise triangles sharing the diagonal.
func ndcQuad(z float32) *renderer.Mesh {
	n := mgl32.Vec3{0, 0, 1}
	return renderer.NewMesh("quad", []renderer.VertexInput{
		{Position: mgl32.Vec3{-1, -1, z}, Normal: n, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{1, -1, z}, Normal: n, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{1, 1, z}, Normal: n, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{-1, 1, z}, Normal: n, TexCoord: mgl32.Vec2{0, 1}},
	}, []uint32{0, 1, 2, 0, 2, 3})
}

func newRasterizer(t *testing.T, w, h int, opts Options) *Rasterizer {
	t.Helper()
	r := New(NewFramebuffer(w, h), opts)
	t.Cleanup(r.Close)
	return r
}

func testOptions() Options {
	return Options{Workers: 4, BandHeight: 3, DepthTest: true}
}

func unlit(mesh *renderer.Mesh, c mgl32.Vec4) renderer.UnlitCall {
	return renderer.UnlitCall{Mesh: mesh, Transforms: identity, Color: c}
}

func TestDrawMatchesFragmentStage(t *testing.T) {
	const size = 16
	r := newRasterizer(t, size, size, testOptions())

	camera := mgl32.Vec3{0, 0, 5}
	lights := renderer.NewLightSet(renderer.Light{Position: mgl32.Vec3{0.5, 1, 2}, Color: mgl32.Vec3{1, 0.9, 0.8}})
	mat := renderer.NewMaterial("plain", mgl32.Vec3{0.2, 0.6, 0.9})

	require.NoError(t, r.Draw(context.Background(), renderer.DrawCall{
		Mesh:       ndcQuad(0),
		Transforms: identity,
		Camera:     camera,
		Lights:     lights,
		Material:   mat,
	}))

	fb := r.Framebuffer()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// With identity transforms world xy is NDC xy at the pixel center
			world := mgl32.Vec3{
				(float32(x)+0.5)/size*2 - 1,
				1 - (float32(y)+0.5)/size*2,
				0,
			}
			want := renderer.ShadeFragment(renderer.FragmentInput{
				WorldPosition: world,
				WorldNormal:   mgl32.Vec3{0, 0, 1},
			}, camera, lights, mat)
			got := fb.At(x, y)
			for c := 0; c < 4; c++ {
				assert.InDeltaf(t, want[c], got[c], 1e-4, "pixel (%d,%d) channel %d", x, y, c)
			}
			assert.InDelta(t, 0.5, fb.DepthAt(x, y), 1e-6)
		}
	}
}

func TestSharedEdgeIsBlendedOnce(t *testing.T) {
	r := newRasterizer(t, 8, 8, testOptions())

	require.NoError(t, r.DrawUnlit(context.Background(), unlit(ndcQuad(0), mgl32.Vec4{1, 0, 0, 0.5})))

	want := mgl32.Vec4{0.5, 0, 0, 0.75}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			assert.Equalf(t, want, r.Framebuffer().At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestDepthTestKeepsNearest(t *testing.T) {
	red := mgl32.Vec4{1, 0, 0, 1}
	blue := mgl32.Vec4{0, 0, 1, 1}

	for _, order := range [][2]bool{{true, false}, {false, true}} {
		r := newRasterizer(t, 4, 4, testOptions())
		for _, nearFirst := range order {
			if nearFirst {
				require.NoError(t, r.DrawUnlit(context.Background(), unlit(ndcQuad(-0.5), red)))
			} else {
				require.NoError(t, r.DrawUnlit(context.Background(), unlit(ndcQuad(0.5), blue)))
			}
		}
		assert.Equal(t, red, r.Framebuffer().At(1, 2))
		assert.InDelta(t, 0.25, r.Framebuffer().DepthAt(1, 2), 1e-6)
	}

	opts := testOptions()
	opts.DepthTest = false
	r := newRasterizer(t, 4, 4, opts)
	require.NoError(t, r.DrawUnlit(context.Background(), unlit(ndcQuad(-0.5), red)))
	require.NoError(t, r.DrawUnlit(context.Background(), unlit(ndcQuad(0.5), blue)))
	assert.Equal(t, blue, r.Framebuffer().At(1, 2), "without depth test the last draw wins")
}

func TestBackFaceCulling(t *testing.T) {
	quad := ndcQuad(0)
	// Reverse the winding
	for i := 0; i < len(quad.Indices); i += 3 {
		quad.Indices[i+1], quad.Indices[i+2] = quad.Indices[i+2], quad.Indices[i+1]
	}
	white := mgl32.Vec4{1, 1, 1, 1}

	opts := testOptions()
	opts.CullBackFaces = true
	culling := newRasterizer(t, 4, 4, opts)
	require.NoError(t, culling.DrawUnlit(context.Background(), unlit(quad, white)))
	assert.Equal(t, black, culling.Framebuffer().At(2, 2))

	// Front faces survive culling
	require.NoError(t, culling.DrawUnlit(context.Background(), unlit(ndcQuad(0), white)))
	assert.Equal(t, white, culling.Framebuffer().At(2, 2))

	twoSided := newRasterizer(t, 4, 4, testOptions())
	require.NoError(t, twoSided.DrawUnlit(context.Background(), unlit(quad, white)))
	assert.Equal(t, white, twoSided.Framebuffer().At(2, 2))
}

func TestTriangleBehindCameraIsDropped(t *testing.T) {
	cam := renderer.NewDefaultCamera(8, 8)
	cam.Position = mgl32.Vec3{0, 0, 5}
	r := newRasterizer(t, 8, 8, testOptions())

	tri := renderer.NewMesh("behind", []renderer.VertexInput{
		{Position: mgl32.Vec3{-1, -1, 8}},
		{Position: mgl32.Vec3{1, -1, 8}},
		{Position: mgl32.Vec3{0, 1, 10}},
	}, nil)

	call := renderer.UnlitCall{Mesh: tri, Transforms: cam.TransformSet(mgl32.Ident4()), Color: mgl32.Vec4{1, 1, 1, 1}}
	require.NoError(t, r.DrawUnlit(context.Background(), call))

	for _, c := range r.Framebuffer().Color {
		require.Equal(t, black, c)
	}
}

func TestNearPlaneClipsStraddlingQuad(t *testing.T) {
	const w, h = 40, 30
	cam := renderer.NewDefaultCamera(w, h)
	cam.Position = mgl32.Vec3{0, 1, 0}
	white := mgl32.Vec4{1, 1, 1, 1}

	// Half of the floor lies behind the camera
	floor := renderer.NewGridFloor(10)
	ts := cam.TransformSet(mgl32.Ident4())
	clip := ts.Projection.Mul4(ts.View).Mul4x1(floor.Vertex(0).Position.Vec4(1))
	require.Less(t, clip.W(), float32(0))

	r := newRasterizer(t, w, h, testOptions())
	require.NoError(t, r.DrawUnlit(context.Background(), renderer.UnlitCall{Mesh: floor, Transforms: ts, Color: white}))

	fb := r.Framebuffer()
	for x := 0; x < w; x++ {
		assert.Equalf(t, white, fb.At(x, h-1), "bottom row pixel %d", x)
		assert.Equalf(t, black, fb.At(x, 0), "top row pixel %d", x)
	}

	// Clipped vertices keep interpolated attributes on the floor plane
	r = newRasterizer(t, w, h, testOptions())
	err := r.draw(context.Background(), floor, ts, pipeline{
		name: "floor",
		shade: func(in renderer.FragmentInput) mgl32.Vec4 {
			return in.WorldPosition.Vec4(1)
		},
	})
	require.NoError(t, err)
	for x := 0; x < w; x += 3 {
		ray := renderer.ScreenToRay(cam, float32(x)+0.5, float32(h)-0.5, w, h)
		want := ray.At(-ray.Origin.Y() / ray.Direction.Y())
		got := r.Framebuffer().At(x, h-1).Vec3()
		assert.Lessf(t, got.Sub(want).Len(), float32(2e-3), "pixel %d: got %v want %v", x, got, want)
	}
}

func TestClipNear(t *testing.T) {
	at := func(z, w float32) renderer.VertexOutput {
		return renderer.VertexOutput{ClipPosition: mgl32.Vec4{0, 0, z, w}, TexCoord: mgl32.Vec2{z, 0}}
	}
	tests := []struct {
		name string
		tri  [3]renderer.VertexOutput
		want int
	}{
		{"inside", [3]renderer.VertexOutput{at(0, 1), at(0.5, 1), at(0.2, 2)}, 3},
		{"one out", [3]renderer.VertexOutput{at(-3, 1), at(0.5, 1), at(0.2, 2)}, 4},
		{"two out", [3]renderer.VertexOutput{at(-3, 1), at(-2, -1), at(0.2, 2)}, 3},
		{"all out", [3]renderer.VertexOutput{at(-3, 1), at(-2, -1), at(-4, 2)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poly := clipNear(tt.tri)
			require.Len(t, poly, tt.want)
			for _, v := range poly {
				p := v.ClipPosition
				assert.GreaterOrEqual(t, p.Z()+p.W(), float32(-1e-6))
				assert.GreaterOrEqual(t, p.W(), float32(nearEpsilon*0.99))
				assert.Equal(t, p.Z(), v.TexCoord.X(), "attributes follow the clip position")
			}
		})
	}
}

func TestPerspectiveCorrectInterpolation(t *testing.T) {
	const w, h = 48, 32
	cam := renderer.NewDefaultCamera(w, h)
	cam.Position = mgl32.Vec3{0, 2, 4}
	cam.LookAt(mgl32.Vec3{0, 0, 0})

	r := newRasterizer(t, w, h, testOptions())
	err := r.draw(context.Background(), renderer.NewGridFloor(20), cam.TransformSet(mgl32.Ident4()), pipeline{
		name: "floor",
		shade: func(in renderer.FragmentInput) mgl32.Vec4 {
			return in.WorldPosition.Vec4(1)
		},
	})
	require.NoError(t, err)

	checked := 0
	for y := h / 2; y < h; y += 3 {
		for x := 0; x < w; x += 5 {
			ray := renderer.ScreenToRay(cam, float32(x)+0.5, float32(y)+0.5, w, h)
			if ray.Direction.Y() >= -1e-3 {
				continue
			}
			want := ray.At(-ray.Origin.Y() / ray.Direction.Y())
			got := r.Framebuffer().At(x, y).Vec3()
			assert.Lessf(t, got.Sub(want).Len(), float32(2e-3), "pixel (%d,%d): got %v want %v", x, y, got, want)
			checked++
		}
	}
	assert.Greater(t, checked, 10)
}

func TestWireframeLeavesInteriorEmpty(t *testing.T) {
	r := newRasterizer(t, 32, 32, testOptions())
	green := mgl32.Vec4{0, 1, 0.4, 1}

	call := unlit(ndcQuad(0), green)
	call.Wireframe = true
	require.NoError(t, r.DrawUnlit(context.Background(), call))

	fb := r.Framebuffer()
	assert.Equal(t, green, fb.At(0, 16), "left border")
	assert.Equal(t, green, fb.At(16, 31), "bottom border")
	assert.Equal(t, green, fb.At(15, 15), "shared diagonal")
	assert.Equal(t, black, fb.At(28, 12), "interior right of the diagonal")
	assert.Equal(t, black, fb.At(4, 20), "interior left of the diagonal")
}

func TestCancelledContextAbandonsDraw(t *testing.T) {
	r := newRasterizer(t, 8, 8, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.DrawUnlit(ctx, unlit(ndcQuad(0), mgl32.Vec4{1, 1, 1, 1}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, black, r.Framebuffer().At(4, 4))
}

func TestDrawErrors(t *testing.T) {
	r := newRasterizer(t, 4, 4, testOptions())

	assert.ErrorIs(t, r.Draw(context.Background(), renderer.DrawCall{}), ErrNoMesh)
	assert.ErrorIs(t, r.DrawUnlit(context.Background(), renderer.UnlitCall{}), ErrNoMesh)

	broken := renderer.NewMesh("broken", []renderer.VertexInput{{}, {}, {}}, []uint32{0, 1, 7})
	err := r.DrawUnlit(context.Background(), unlit(broken, mgl32.Vec4{1, 1, 1, 1}))
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}

func TestBandingIsDeterministic(t *testing.T) {
	cam := renderer.NewDefaultCamera(40, 30)
	cam.Position = mgl32.Vec3{1.5, 1, 2.5}
	cam.LookAt(mgl32.Vec3{0, 0, 0})

	lights := renderer.NewLightSet(
		renderer.Light{Position: mgl32.Vec3{2, 3, 2}, Color: mgl32.Vec3{1, 1, 1}},
		renderer.Light{Position: mgl32.Vec3{-2, 1, 0}, Color: mgl32.Vec3{0.3, 0.3, 0.8}},
	)
	glass := renderer.NewMaterial("glass", mgl32.Vec3{})
	glass.SetGlass(0.4, 0.8, 0.9, 0.6)

	render := func(opts Options) *Framebuffer {
		r := newRasterizer(t, 40, 30, opts)
		ctx := context.Background()
		require.NoError(t, r.Draw(ctx, renderer.DrawCall{
			Mesh: renderer.NewUVSphere(0.8, 8, 12), Transforms: cam.TransformSet(mgl32.Ident4()),
			Camera: cam.Position, Lights: lights, Material: renderer.DefaultMaterial,
		}))
		require.NoError(t, r.Draw(ctx, renderer.DrawCall{
			Mesh: renderer.NewCube(), Transforms: cam.TransformSet(mgl32.Translate3D(0.3, 0, 0.5)),
			Camera: cam.Position, Lights: lights, Material: glass,
		}))
		return r.Framebuffer()
	}

	serial := render(Options{Workers: 1, BandHeight: 30, DepthTest: true})
	banded := render(Options{Workers: 6, BandHeight: 1, DepthTest: true})
	assert.Equal(t, serial.Color, banded.Color)
	assert.Equal(t, serial.Depth, banded.Depth)

	drawn := 0
	for _, c := range serial.Color {
		if c != black {
			drawn++
		}
	}
	assert.Greater(t, drawn, 100)
}

func TestImageClampsChannels(t *testing.T) {
	fb := NewFramebuffer(2, 1)
	fb.Color[0] = mgl32.Vec4{1.45, -0.2, 0.5, 1}
	fb.Color[1] = mgl32.Vec4{math32.NaN(), 0, 0, 1}

	img := fb.Image()
	assert.Equal(t, [4]uint8{255, 0, 128, 255}, [4]uint8(img.Pix[0:4]))
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, [4]uint8(img.Pix[4:8]))
}
