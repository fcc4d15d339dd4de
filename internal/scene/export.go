package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"GopherShade/internal/loader"
	"GopherShade/internal/logger"

	"go.uber.org/zap"
)

var ErrEmptyFolder = errors.New("no exportable objects in folder")

// ExportFolder writes every non-light object of a folder into one OBJ file
// under dir, in world space, and returns the file path.
func (s *Scene) ExportFolder(folder, dir string) (string, error) {
	var items []loader.ExportItem
	for _, o := range s.Objects {
		if o.Folder != folder || o.IsLight || o.Mesh == nil {
			continue
		}
		items = append(items, loader.ExportItem{
			Name:  o.Name,
			Mesh:  o.Mesh,
			Model: o.Transform.ModelMatrix(),
		})
	}
	if len(items) == 0 {
		return "", fmt.Errorf("export %q: %w", folder, ErrEmptyFolder)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("export %q: %w", folder, err)
	}
	safeName := strings.NewReplacer(" ", "_", "/", "_").Replace(folder)
	path := filepath.Join(dir, safeName+".obj")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", folder, err)
	}
	if err := loader.WriteOBJ(f, fmt.Sprintf("GopherShade export of folder %q", folder), items); err != nil {
		f.Close()
		return "", fmt.Errorf("export %q: %w", folder, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("export %q: %w", folder, err)
	}

	logger.Log.Info("Folder exported",
		zap.String("folder", folder),
		zap.String("path", path),
		zap.Int("objects", len(items)))
	return path, nil
}
