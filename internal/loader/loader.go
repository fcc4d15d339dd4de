// Package loader reads and writes Wavefront OBJ models and their MTL
// material libraries.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"GopherShade/internal/logger"
	"GopherShade/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var ErrMalformedOBJ = errors.New("malformed obj data")

// Model is a parsed OBJ file. All material groups share one mesh; Groups
// records which index ranges use which material.
type Model struct {
	Mesh      *renderer.Mesh
	Materials map[string]MTLMaterial
	Groups    []MaterialGroup
}

// MaterialGroup is a run of consecutive indices drawn with one material.
type MaterialGroup struct {
	Material   string
	IndexStart int
	IndexCount int
}

// PrimaryMaterial returns the material of the first group, if the library
// defines it.
func (m *Model) PrimaryMaterial() (MTLMaterial, bool) {
	if len(m.Groups) == 0 {
		return MTLMaterial{}, false
	}
	mat, ok := m.Materials[m.Groups[0].Material]
	return mat, ok
}

type FaceVertex struct {
	VertexIdx   int32
	TexCoordIdx int32 // -1 when absent
	NormalIdx   int32 // -1 when absent
}

// LoadModel reads an OBJ file. Normals are recomputed from the faces when
// recalculateNormals is set or when the file leaves any of them out.
func LoadModel(filename string, recalculateNormals bool) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", filename, err)
	}
	defer file.Close()

	model, err := ParseOBJ(file, filepath.Dir(filename), recalculateNormals)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", filename, err)
	}
	model.Mesh.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	logger.Log.Info("Model loaded",
		zap.String("path", filename),
		zap.Int("vertices", model.Mesh.VertexCount()),
		zap.Int("triangles", model.Mesh.TriangleCount()),
		zap.Int("materialGroups", len(model.Groups)))
	return model, nil
}

// ParseOBJ reads OBJ text. mtllib paths are resolved against baseDir.
func ParseOBJ(r io.Reader, baseDir string, recalculateNormals bool) (*Model, error) {
	var positions, normals []mgl32.Vec3
	var texCoords []mgl32.Vec2
	var corners []FaceVertex // three per triangle
	var triangleMaterials []string
	materials := make(map[string]MTLMaterial)
	currentMaterial := ""

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		switch parts[0] {
		case "v":
			v, err := parseVec3(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			positions = append(positions, v)
		case "vn":
			n, err := parseVec3(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: normal: %w", lineNo, err)
			}
			normals = append(normals, n)
		case "vt":
			uv, err := parseTextureCoordinate(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: texture coordinate: %w", lineNo, err)
			}
			texCoords = append(texCoords, uv)
		case "f":
			face, err := parseFace(parts[1:], len(positions), len(texCoords), len(normals))
			if err != nil {
				return nil, fmt.Errorf("line %d: face: %w", lineNo, err)
			}
			corners = append(corners, face...)
			for i := 0; i < len(face)/3; i++ {
				triangleMaterials = append(triangleMaterials, currentMaterial)
			}
		case "mtllib":
			if len(parts) < 2 {
				continue
			}
			mtlPath := filepath.Join(baseDir, strings.Join(parts[1:], " "))
			lib, err := LoadMaterials(mtlPath)
			if err != nil {
				// A missing library leaves the model on scene colors
				logger.Log.Warn("Material library not loaded",
					zap.String("path", mtlPath),
					zap.Error(err))
				continue
			}
			for name, mat := range lib {
				materials[name] = mat
			}
		case "usemtl":
			if len(parts) >= 2 {
				currentMaterial = parts[1]
				if _, ok := materials[currentMaterial]; !ok {
					logger.Log.Debug("Material not found", zap.String("material", currentMaterial))
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(corners) == 0 {
		return nil, fmt.Errorf("%w: no faces", ErrMalformedOBJ)
	}

	missingNormals := false
	for _, c := range corners {
		if c.NormalIdx < 0 {
			missingNormals = true
			break
		}
	}
	var smooth []mgl32.Vec3
	if recalculateNormals || missingNormals {
		smooth = RecalculateNormals(positions, corners)
	}

	// Index unification: one output vertex per distinct v/vt/vn triplet
	type vertexKey struct{ v, vt, vn int32 }
	vertexMap := make(map[vertexKey]uint32)
	var vertices []renderer.VertexInput
	indices := make([]uint32, 0, len(corners))
	for _, c := range corners {
		key := vertexKey{c.VertexIdx, c.TexCoordIdx, c.NormalIdx}
		if idx, ok := vertexMap[key]; ok {
			indices = append(indices, idx)
			continue
		}
		vert := renderer.VertexInput{Position: positions[c.VertexIdx]}
		if c.TexCoordIdx >= 0 {
			vert.TexCoord = texCoords[c.TexCoordIdx]
		}
		switch {
		case smooth != nil:
			vert.Normal = smooth[c.VertexIdx]
		default:
			vert.Normal = normals[c.NormalIdx]
		}
		idx := uint32(len(vertices))
		vertexMap[key] = idx
		vertices = append(vertices, vert)
		indices = append(indices, idx)
	}

	return &Model{
		Mesh:      renderer.NewMesh("model", vertices, indices),
		Materials: materials,
		Groups:    materialGroups(triangleMaterials),
	}, nil
}

// materialGroups collapses per-triangle material names into index ranges.
func materialGroups(triangleMaterials []string) []MaterialGroup {
	var groups []MaterialGroup
	for i, name := range triangleMaterials {
		if len(groups) > 0 && groups[len(groups)-1].Material == name {
			groups[len(groups)-1].IndexCount += 3
			continue
		}
		groups = append(groups, MaterialGroup{Material: name, IndexStart: i * 3, IndexCount: 3})
	}
	return groups
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %q", ErrMalformedOBJ, s)
	}
	return float32(f), nil
}

func parseVec3(parts []string) (mgl32.Vec3, error) {
	if len(parts) < 3 {
		return mgl32.Vec3{}, fmt.Errorf("%w: want 3 values, got %d", ErrMalformedOBJ, len(parts))
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := parseFloat(parts[i])
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}

// for 2D textures; a third w component is ignored
func parseTextureCoordinate(parts []string) (mgl32.Vec2, error) {
	if len(parts) < 1 {
		return mgl32.Vec2{}, fmt.Errorf("%w: empty texture coordinate", ErrMalformedOBJ)
	}
	var uv mgl32.Vec2
	for i := 0; i < 2 && i < len(parts); i++ {
		f, err := parseFloat(parts[i])
		if err != nil {
			return mgl32.Vec2{}, err
		}
		uv[i] = f
	}
	return uv, nil
}

// parseFace returns the corners of a polygon fan-triangulated from its
// first vertex, with indices made zero based. Negative OBJ indices count
// back from the most recent element.
func parseFace(parts []string, numPositions, numTexCoords, numNormals int) ([]FaceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: face with %d vertices", ErrMalformedOBJ, len(parts))
	}

	face := make([]FaceVertex, 0, len(parts))
	for _, part := range parts {
		vals := strings.Split(part, "/")

		vertexIdx, err := parseIndex(vals[0], numPositions)
		if err != nil {
			return nil, err
		}
		fv := FaceVertex{VertexIdx: vertexIdx, TexCoordIdx: -1, NormalIdx: -1}
		if len(vals) > 1 && vals[1] != "" {
			if fv.TexCoordIdx, err = parseIndex(vals[1], numTexCoords); err != nil {
				return nil, err
			}
		}
		if len(vals) > 2 && vals[2] != "" {
			if fv.NormalIdx, err = parseIndex(vals[2], numNormals); err != nil {
				return nil, err
			}
		}
		face = append(face, fv)
	}

	if len(face) == 3 {
		return face, nil
	}
	triangulated := make([]FaceVertex, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		triangulated = append(triangulated, face[0], face[i], face[i+1])
	}
	return triangulated, nil
}

func parseIndex(s string, count int) (int32, error) {
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid index %q", ErrMalformedOBJ, s)
	}
	switch {
	case i > 0:
		i-- // .obj indices start at 1
	case i < 0:
		i += int64(count)
	default:
		return 0, fmt.Errorf("%w: index 0", ErrMalformedOBJ)
	}
	if i < 0 || i >= int64(count) {
		return 0, fmt.Errorf("%w: index %s out of range (%d defined)", ErrMalformedOBJ, s, count)
	}
	return int32(i), nil
}

// RecalculateNormals averages the face normals around each position.
// Positions no face touches get a zero normal.
func RecalculateNormals(positions []mgl32.Vec3, corners []FaceVertex) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(positions))
	for i := 0; i+2 < len(corners); i += 3 {
		i0, i1, i2 := corners[i].VertexIdx, corners[i+1].VertexIdx, corners[i+2].VertexIdx
		v0, v1, v2 := positions[i0], positions[i1], positions[i2]
		// area weighted
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		normals[i0] = normals[i0].Add(n)
		normals[i1] = normals[i1].Add(n)
		normals[i2] = normals[i2].Add(n)
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	return normals
}
