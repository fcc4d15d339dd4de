package raster

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Framebuffer holds linear float color and a [0,1] depth value per pixel.
// Row 0 is the top of the image.
type Framebuffer struct {
	Width  int
	Height int
	Color  []mgl32.Vec4
	Depth  []float32
}

func NewFramebuffer(width, height int) *Framebuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	fb := &Framebuffer{
		Width:  width,
		Height: height,
		Color:  make([]mgl32.Vec4, width*height),
		Depth:  make([]float32, width*height),
	}
	fb.Clear(mgl32.Vec4{0, 0, 0, 1})
	return fb
}

// Clear fills color and resets depth to the far plane.
func (fb *Framebuffer) Clear(c mgl32.Vec4) {
	for i := range fb.Color {
		fb.Color[i] = c
		fb.Depth[i] = 1
	}
}

func (fb *Framebuffer) At(x, y int) mgl32.Vec4 {
	return fb.Color[y*fb.Width+x]
}

func (fb *Framebuffer) DepthAt(x, y int) float32 {
	return fb.Depth[y*fb.Width+x]
}

// Image converts to 8 bits per channel. Channels are clamped to [0,1];
// NaN becomes 0.
func (fb *Framebuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			c := fb.Color[y*fb.Width+x]
			img.SetNRGBA(x, y, color.NRGBA{
				R: toByte(c[0]),
				G: toByte(c[1]),
				B: toByte(c[2]),
				A: toByte(c[3]),
			})
		}
	}
	return img
}

func toByte(v float32) uint8 {
	if math32.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
