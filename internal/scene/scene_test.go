package scene

import (
	"errors"
	"fmt"
	"testing"

	"GopherShade/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScene(t *testing.T) {
	s := Default(320, 240)

	require.Len(t, s.Objects, 3)
	assert.Equal(t, 0, s.Find("Floor"))
	assert.Equal(t, 1, s.Find("Cube"))
	assert.Equal(t, 2, s.Find("Lamp"))
	assert.Equal(t, -1, s.Find("Teapot"))
	assert.Equal(t, -1, s.Selected)
	assert.Equal(t, DefaultBackground, s.Background)

	cube := s.Objects[1]
	assert.Equal(t, KindCube, cube.Kind)
	assert.Equal(t, DefaultCubeColor, cube.Material.BaseColor)
	assert.False(t, cube.IsTransparent())

	lamp := s.Objects[2]
	assert.True(t, lamp.IsLight)
	assert.False(t, lamp.IsTransparent())
	assert.Nil(t, lamp.Material)
}

func TestSelect(t *testing.T) {
	s := Default(320, 240)

	require.NoError(t, s.Select("Cube"))
	sel, ok := s.SelectedObject()
	require.True(t, ok)
	assert.Equal(t, "Cube", sel.Name)

	err := s.Select("Teapot")
	assert.True(t, errors.Is(err, ErrUnknownObject))
	assert.Equal(t, 1, s.Selected, "failed select keeps the old selection")

	require.NoError(t, s.Select(""))
	_, ok = s.SelectedObject()
	assert.False(t, ok)
}

func TestOrbitLightPosition(t *testing.T) {
	o := DefaultOrbitLight()

	start := o.PositionAt(0)
	assert.InDeltaSlice(t, []float32{3, 2.5, 0}, start[:], 1e-5)

	quarter := o.PositionAt(mgl32.DegToRad(90) / o.Speed)
	assert.InDeltaSlice(t, []float32{0, 2.5, 3}, quarter[:], 1e-4)
}

func TestCollectLightsOrder(t *testing.T) {
	s := New(100, 100)
	s.Add(
		NewObject("Cube", KindCube, DefaultCubeColor),
		NewLight("A", mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 0, 0}, 0.5),
		NewLight("B", mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0}, 2),
	)

	lights := s.CollectLights(0)
	require.Equal(t, 3, lights.Active())
	assert.Equal(t, s.Orbit.PositionAt(0), lights.Lights[0].Position, "orbiting light comes first")
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, lights.Lights[1].Position)
	assert.Equal(t, mgl32.Vec3{0.5, 0, 0}, lights.Lights[1].Color, "color is scaled by intensity")
	assert.Equal(t, mgl32.Vec3{0, 2, 0}, lights.Lights[2].Color)

	s.Orbit.Enabled = false
	lights = s.CollectLights(0)
	require.Equal(t, 2, lights.Active())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, lights.Lights[0].Position)
}

func TestCollectLightsTruncates(t *testing.T) {
	s := New(100, 100)
	for i := 0; i < renderer.MaxLights+3; i++ {
		s.Add(NewLight(fmt.Sprintf("L%d", i), mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{1, 1, 1}, 1))
	}

	lights := s.CollectLights(0)
	require.Equal(t, renderer.MaxLights, lights.Active())
	// Orbit light plus the first MaxLights-1 light objects
	last := lights.Lights[renderer.MaxLights-1]
	assert.Equal(t, float32(renderer.MaxLights-2), last.Position.X())
}

func TestUniformBlocks(t *testing.T) {
	s := Default(320, 240)
	blocks := s.UniformBlocks(0)

	require.Len(t, blocks, 2)
	require.Contains(t, blocks, "Cube")
	require.Contains(t, blocks, "Floor")
	assert.NotContains(t, blocks, "Lamp")

	cube := blocks["Cube"]
	assert.Equal(t, int32(2), cube.NumLights)
	assert.Equal(t, [3]float32(DefaultCubeColor), cube.ObjectColor)
	assert.Equal(t, [3]float32(s.Camera.Position), cube.ViewPosition)
	assert.Equal(t, [3]float32{-2, 1.5, 1.5}, cube.LightPositions[1])
	assert.Equal(t, [3]float32{}, cube.LightPositions[2])
	assert.Equal(t, float32(1), cube.Alpha)
}
