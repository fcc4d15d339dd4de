package renderer

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureManagerCachesByName(t *testing.T) {
	tm := NewTextureManager()

	id1, tex1 := tm.CreateTextureFromImage(redBlueRow(), "checker")
	id2, tex2 := tm.CreateTextureFromImage(redBlueRow(), "checker")

	assert.Equal(t, uint32(1), id1)
	assert.Equal(t, id1, id2)
	assert.Same(t, tex1, tex2)

	stats := tm.GetStats()
	assert.Equal(t, 1, stats.CacheMisses)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, stats.ActiveTextures)
	assert.Equal(t, 2, stats.TotalTexels)

	id3, _ := tm.CreateTextureFromImage(redBlueRow(), "other")
	assert.NotEqual(t, id1, id3)
}

func TestTextureManagerReleaseDropsAtZero(t *testing.T) {
	tm := NewTextureManager()
	id, _ := tm.CreateTextureFromImage(redBlueRow(), "shared")
	tm.AddReference(id)

	tm.ReleaseTexture(id)
	_, ok := tm.Get(id)
	assert.True(t, ok, "one reference still held")

	tm.ReleaseTexture(id)
	_, ok = tm.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, tm.GetStats().ActiveTextures)
	assert.Equal(t, 0, tm.GetStats().TotalTexels)

	// Releasing again or releasing ID 0 is harmless
	tm.ReleaseTexture(id)
	tm.ReleaseTexture(0)

	// The name can be reused with a fresh ID
	newID, _ := tm.CreateTextureFromImage(redBlueRow(), "shared")
	assert.NotEqual(t, id, newID)
}

func TestTextureManagerLoadTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, red)
	img.Set(0, 1, blue)

	path := filepath.Join(t.TempDir(), "stripe.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	tm := NewTextureManager()
	id, tex, err := tm.LoadTexture(path)
	require.NoError(t, err)
	assert.NotZero(t, id)

	// File textures put the image's bottom row at v=0
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, tex.Texel(0, 0))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, tex.Texel(0, 1))

	again, _, err := tm.LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	tm.LogStats()
}

func TestTextureManagerLoadErrors(t *testing.T) {
	tm := NewTextureManager()

	_, _, err := tm.LoadTexture(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	garbage := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, _, err = tm.LoadTexture(garbage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, image.ErrFormat))

	assert.Equal(t, 0, tm.GetStats().ActiveTextures)
}

func TestTextureManagerClear(t *testing.T) {
	tm := NewTextureManager()
	id, _ := tm.CreateTextureFromImage(redBlueRow(), "a")
	tm.Clear()

	_, ok := tm.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, tm.GetStats().ActiveTextures)
}
