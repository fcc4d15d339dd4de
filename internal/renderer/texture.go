package renderer

import (
	"image"
	"image/color"

	"github.com/aquilax/go-perlin"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// FilterMode selects how a Texture reconstructs between texels.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// Texture is a decoded RGBA image sampled in software. Coordinates wrap
// (repeat) in both directions. Texels are stored as non-premultiplied
// floats in [0,1].
type Texture struct {
	Width  int
	Height int
	Filter FilterMode
	texels []mgl32.Vec4
}

// NewTextureFromImage converts any image. With flipY the first row of the
// image lands at v=1, matching bottom-left texture origins.
func NewTextureFromImage(img image.Image, flipY bool) *Texture {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	t := &Texture{Width: w, Height: h, texels: make([]mgl32.Vec4, w*h)}
	for y := 0; y < h; y++ {
		srcY := y
		if flipY {
			srcY = h - 1 - y
		}
		row := nrgba.Pix[srcY*nrgba.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			t.texels[y*w+x] = mgl32.Vec4{
				float32(p[0]) / 255,
				float32(p[1]) / 255,
				float32(p[2]) / 255,
				float32(p[3]) / 255,
			}
		}
	}
	return t
}

// NewSolidTexture is a 1x1 texture, handy as a default.
func NewSolidTexture(c color.Color) *Texture {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return NewTextureFromImage(img, false)
}

// Texel returns the texel at integer coordinates with repeat wrapping.
// Row 0 is v=0.
func (t *Texture) Texel(x, y int) mgl32.Vec4 {
	x = wrap(x, t.Width)
	y = wrap(y, t.Height)
	return t.texels[y*t.Width+x]
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Sample implements Sampler.
func (t *Texture) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	if t.Width == 0 || t.Height == 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	// Texel centers sit at half-integer coordinates
	x := uv.X()*float32(t.Width) - 0.5
	y := uv.Y()*float32(t.Height) - 0.5

	if t.Filter == FilterNearest {
		return t.Texel(int(math32.Floor(x+0.5)), int(math32.Floor(y+0.5)))
	}

	x0, y0 := math32.Floor(x), math32.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	c00 := t.Texel(ix, iy)
	c10 := t.Texel(ix+1, iy)
	c01 := t.Texel(ix, iy+1)
	c11 := t.Texel(ix+1, iy+1)

	top := c00.Mul(1 - fx).Add(c10.Mul(fx))
	bottom := c01.Mul(1 - fx).Add(c11.Mul(fx))
	return top.Mul(1 - fy).Add(bottom.Mul(fy))
}

// NoiseTexture is a procedural sampler blending two colors by Perlin noise.
type NoiseTexture struct {
	Low   mgl32.Vec3
	High  mgl32.Vec3
	Scale float32 // noise periods per unit of texture space
	noise *perlin.Perlin
}

// NewNoiseTexture uses alpha 2, beta 2 and 3 octaves, which gives a soft
// marble-like pattern.
func NewNoiseTexture(low, high mgl32.Vec3, scale float32, seed int64) *NoiseTexture {
	return &NoiseTexture{
		Low:   low,
		High:  high,
		Scale: scale,
		noise: perlin.NewPerlin(2, 2, 3, seed),
	}
}

// Sample blends Low to High by the Perlin value at uv*Scale.
func (n *NoiseTexture) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	v := n.noise.Noise2D(float64(uv.X()*n.Scale), float64(uv.Y()*n.Scale))
	// Noise2D is roughly in [-1,1]
	t := mgl32.Clamp(float32(v)*0.5+0.5, 0, 1)
	c := n.Low.Mul(1 - t).Add(n.High.Mul(t))
	return c.Vec4(1)
}
