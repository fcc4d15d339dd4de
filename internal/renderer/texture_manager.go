package renderer

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"GopherShade/internal/logger"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	ActiveTextures int
	TotalTexels    int
}

// TextureManager manages texture loading, caching, and lifecycle.
// IDs start at 1; 0 means "no texture".
type TextureManager struct {
	textureCache    map[string]uint32   // path or name -> texture ID
	textures        map[uint32]*Texture // texture ID -> texture
	textureRefCount map[uint32]int      // texture ID -> reference count
	texturePaths    map[uint32]string   // texture ID -> path (for debugging)
	nextID          uint32
	mu              sync.RWMutex
	stats           TextureStats
}

// NewTextureManager creates a new texture manager instance
func NewTextureManager() *TextureManager {
	return &TextureManager{
		textureCache:    make(map[string]uint32),
		textures:        make(map[uint32]*Texture),
		textureRefCount: make(map[uint32]int),
		texturePaths:    make(map[uint32]string),
	}
}

// LoadTexture decodes an image file (png, jpeg, bmp, tiff, webp) or returns
// the cached texture. File textures are flipped so row 0 is the bottom of the
// image. Every call adds a reference.
func (tm *TextureManager) LoadTexture(filePath string) (uint32, *Texture, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if id, tex, ok := tm.lookupLocked(filePath); ok {
		return id, tex, nil
	}

	tm.stats.CacheMisses++

	imgFile, err := os.Open(filePath)
	if err != nil {
		return 0, nil, fmt.Errorf("open texture %s: %w", filePath, err)
	}
	defer imgFile.Close()

	img, format, err := image.Decode(imgFile)
	if err != nil {
		return 0, nil, fmt.Errorf("decode texture %s: %w", filePath, err)
	}

	tex := NewTextureFromImage(img, true)
	id := tm.storeLocked(filePath, tex)

	logger.Log.Info("Texture loaded and cached",
		zap.String("path", filePath),
		zap.String("format", format),
		zap.Uint32("textureID", id),
		zap.Int("width", tex.Width),
		zap.Int("height", tex.Height))

	return id, tex, nil
}

// CreateTextureFromImage caches an in-memory image under name. Embedded
// images are not flipped.
func (tm *TextureManager) CreateTextureFromImage(img image.Image, name string) (uint32, *Texture) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if id, tex, ok := tm.lookupLocked(name); ok {
		return id, tex
	}
	tm.stats.CacheMisses++

	tex := NewTextureFromImage(img, false)
	id := tm.storeLocked(name, tex)

	logger.Log.Info("Texture created from image",
		zap.String("name", name),
		zap.Uint32("textureID", id))

	return id, tex
}

func (tm *TextureManager) lookupLocked(key string) (uint32, *Texture, bool) {
	id, exists := tm.textureCache[key]
	if !exists {
		return 0, nil, false
	}
	tm.textureRefCount[id]++
	tm.stats.CacheHits++

	logger.Log.Debug("Texture cache hit",
		zap.String("key", key),
		zap.Uint32("textureID", id),
		zap.Int("refCount", tm.textureRefCount[id]))

	return id, tm.textures[id], true
}

func (tm *TextureManager) storeLocked(key string, tex *Texture) uint32 {
	tm.nextID++
	id := tm.nextID
	tm.textureCache[key] = id
	tm.textures[id] = tex
	tm.textureRefCount[id] = 1
	tm.texturePaths[id] = key
	tm.stats.TotalTextures++
	tm.stats.TotalTexels += tex.Width * tex.Height
	return id
}

// Get returns a live texture by ID.
func (tm *TextureManager) Get(textureID uint32) (*Texture, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	tex, ok := tm.textures[textureID]
	return tex, ok
}

// AddReference increments the reference count for a texture
func (tm *TextureManager) AddReference(textureID uint32) {
	if textureID == 0 {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, ok := tm.textures[textureID]; !ok {
		return
	}
	tm.textureRefCount[textureID]++
}

// ReleaseTexture decrements the reference count and drops the texture at zero.
func (tm *TextureManager) ReleaseTexture(textureID uint32) {
	if textureID == 0 {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	refCount, exists := tm.textureRefCount[textureID]
	if !exists {
		logger.Log.Warn("Attempted to release unknown texture",
			zap.Uint32("textureID", textureID))
		return
	}

	refCount--
	tm.textureRefCount[textureID] = refCount

	if refCount <= 0 {
		path := tm.texturePaths[textureID]
		tm.stats.TotalTexels -= tm.textures[textureID].Width * tm.textures[textureID].Height
		delete(tm.textureCache, path)
		delete(tm.textures, textureID)
		delete(tm.textureRefCount, textureID)
		delete(tm.texturePaths, textureID)

		logger.Log.Info("Texture freed",
			zap.Uint32("textureID", textureID),
			zap.String("path", path))
	}
}

// GetStats returns current texture manager statistics
func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.textures)
	return stats
}

// LogStats logs current texture statistics
func (tm *TextureManager) LogStats() {
	stats := tm.GetStats()
	hitRate := 0.0
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		hitRate = float64(stats.CacheHits) / float64(lookups)
	}
	logger.Log.Info("Texture Manager Stats",
		zap.Int("totalTextures", stats.TotalTextures),
		zap.Int("activeTextures", stats.ActiveTextures),
		zap.Int("cacheHits", stats.CacheHits),
		zap.Int("cacheMisses", stats.CacheMisses),
		zap.Float64("hitRate", hitRate))
}

// Clear drops every texture.
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.textureCache = make(map[string]uint32)
	tm.textures = make(map[uint32]*Texture)
	tm.textureRefCount = make(map[uint32]int)
	tm.texturePaths = make(map[uint32]string)
	tm.stats.TotalTexels = 0

	logger.Log.Info("Texture manager cleared")
}
