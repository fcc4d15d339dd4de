package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"GopherShade/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MTLMaterial is the part of an MTL material the shading model can use.
type MTLMaterial struct {
	Name       string
	Diffuse    mgl32.Vec3 // Kd
	Alpha      float32    // d, or 1 - Tr
	Shininess  float32    // Ns, 0 when unset
	DiffuseMap string     // map_Kd, resolved against the library's directory
}

// LoadMaterials parses an MTL library. Unparseable values are logged and
// skipped rather than failing the whole library.
func LoadMaterials(filename string) (map[string]MTLMaterial, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open material library: %w", err)
	}
	defer file.Close()

	materials := make(map[string]MTLMaterial)
	var current *MTLMaterial
	flush := func() {
		if current != nil {
			materials[current.Name] = *current
		}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				logger.Log.Warn("Malformed material line", zap.String("line", line))
				continue
			}
			flush()
			current = &MTLMaterial{
				Name:    fields[1],
				Diffuse: mgl32.Vec3{0.8, 0.8, 0.8},
				Alpha:   1.0,
			}
			continue
		}
		if current == nil {
			continue
		}

		switch fields[0] {
		case "Kd":
			if c, err := parseVec3(fields[1:]); err == nil {
				current.Diffuse = c
			} else {
				logger.Log.Warn("Bad diffuse color", zap.String("material", current.Name), zap.Error(err))
			}
		case "Ns":
			if len(fields) >= 2 {
				if f, err := parseFloat(fields[1]); err == nil {
					current.Shininess = f
				}
			}
		case "d":
			if len(fields) >= 2 {
				if f, err := parseFloat(fields[1]); err == nil {
					current.Alpha = f
				}
			}
		case "Tr":
			if len(fields) >= 2 {
				if f, err := parseFloat(fields[1]); err == nil {
					current.Alpha = 1 - f
				}
			}
		case "map_Kd":
			if len(fields) >= 2 {
				// Options come first, the path is last
				texturePath := fields[len(fields)-1]
				if !filepath.IsAbs(texturePath) {
					texturePath = filepath.Join(filepath.Dir(filename), texturePath)
				}
				current.DiffuseMap = texturePath
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read material library: %w", err)
	}

	logger.Log.Debug("Material library loaded",
		zap.String("path", filename),
		zap.Int("materials", len(materials)))
	return materials, nil
}
