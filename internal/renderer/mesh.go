package renderer

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FloatsPerVertex is the interleaved layout: position(3) normal(3) texcoord(2).
const FloatsPerVertex = 8

const (
	meshMagic   uint32 = 0x4D455348 // "MESH"
	meshVersion uint32 = 2

	meshFlagIndexed uint32 = 1
)

var (
	ErrInvalidMeshMagic       = errors.New("invalid mesh file magic")
	ErrUnsupportedMeshVersion = errors.New("unsupported mesh version")
	ErrMalformedMesh          = errors.New("malformed mesh data")
)

// Mesh is triangle-list geometry with interleaved vertex attributes.
// Without Indices every three consecutive vertices form a triangle.
type Mesh struct {
	Name        string
	Interleaved []float32
	Indices     []uint32
}

// NewMesh builds a mesh from vertex inputs.
func NewMesh(name string, vertices []VertexInput, indices []uint32) *Mesh {
	data := make([]float32, 0, len(vertices)*FloatsPerVertex)
	for _, v := range vertices {
		data = append(data,
			v.Position[0], v.Position[1], v.Position[2],
			v.Normal[0], v.Normal[1], v.Normal[2],
			v.TexCoord[0], v.TexCoord[1])
	}
	return &Mesh{Name: name, Interleaved: data, Indices: indices}
}

func (m *Mesh) VertexCount() int {
	return len(m.Interleaved) / FloatsPerVertex
}

// Vertex decodes vertex i.
func (m *Mesh) Vertex(i int) VertexInput {
	d := m.Interleaved[i*FloatsPerVertex : (i+1)*FloatsPerVertex]
	return VertexInput{
		Position: mgl32.Vec3{d[0], d[1], d[2]},
		Normal:   mgl32.Vec3{d[3], d[4], d[5]},
		TexCoord: mgl32.Vec2{d[6], d[7]},
	}
}

func (m *Mesh) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) [3]int {
	if len(m.Indices) > 0 {
		return [3]int{int(m.Indices[i*3]), int(m.Indices[i*3+1]), int(m.Indices[i*3+2])}
	}
	return [3]int{i * 3, i*3 + 1, i*3 + 2}
}

// BoundingSphere returns the centroid of the vertices and the largest distance to it.
func (m *Mesh) BoundingSphere() (mgl32.Vec3, float32) {
	n := m.VertexCount()
	if n == 0 {
		return mgl32.Vec3{}, 0
	}
	var center mgl32.Vec3
	for i := 0; i < n; i++ {
		center = center.Add(m.Vertex(i).Position)
	}
	center = center.Mul(1.0 / float32(n))

	var maxDistanceSq float32
	for i := 0; i < n; i++ {
		d := m.Vertex(i).Position.Sub(center)
		if sq := d.Dot(d); sq > maxDistanceSq {
			maxDistanceSq = sq
		}
	}
	return center, math32.Sqrt(maxDistanceSq)
}

// NewCube is a unit cube centered on the origin with per-face normals.
func NewCube() *Mesh {
	type face struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3 // counter-clockwise seen from outside
	}
	faces := []face{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{0.5, -0.5, 0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	vertices := make([]VertexInput, 0, len(faces)*4)
	indices := make([]uint32, 0, len(faces)*6)
	for _, f := range faces {
		base := uint32(len(vertices))
		for i, c := range f.corners {
			vertices = append(vertices, VertexInput{Position: c, Normal: f.normal, TexCoord: uvs[i]})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMesh("cube", vertices, indices)
}

// NewGridFloor is a flat square of half-size size on the XZ plane, facing +Y.
func NewGridFloor(size float32) *Mesh {
	up := mgl32.Vec3{0, 1, 0}
	vertices := []VertexInput{
		{Position: mgl32.Vec3{-size, 0, size}, Normal: up, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{size, 0, size}, Normal: up, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{size, 0, -size}, Normal: up, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{-size, 0, -size}, Normal: up, TexCoord: mgl32.Vec2{0, 1}},
	}
	return NewMesh("floor", vertices, []uint32{0, 1, 2, 0, 2, 3})
}

// NewTriangle is a single upright triangle in the XY plane facing +Z.
func NewTriangle() *Mesh {
	front := mgl32.Vec3{0, 0, 1}
	return NewMesh("triangle", []VertexInput{
		{Position: mgl32.Vec3{-0.6, -0.6, 0}, Normal: front, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{0.6, -0.6, 0}, Normal: front, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0, 0.6, 0}, Normal: front, TexCoord: mgl32.Vec2{0.5, 1}},
	}, nil)
}

// NewUVSphere builds a latitude/longitude sphere with smooth normals.
func NewUVSphere(radius float32, stacks, sectors int) *Mesh {
	if stacks < 2 {
		stacks = 2
	}
	if sectors < 3 {
		sectors = 3
	}
	vertices := make([]VertexInput, 0, (stacks+1)*(sectors+1))
	for i := 0; i <= stacks; i++ {
		lat := math32.Pi * (-0.5 + float32(i)/float32(stacks))
		y, r := math32.Sin(lat), math32.Cos(lat)
		for j := 0; j <= sectors; j++ {
			lon := 2 * math32.Pi * float32(j) / float32(sectors)
			n := mgl32.Vec3{math32.Cos(lon) * r, y, math32.Sin(lon) * r}
			vertices = append(vertices, VertexInput{
				Position: n.Mul(radius),
				Normal:   n,
				TexCoord: mgl32.Vec2{float32(j) / float32(sectors), float32(i) / float32(stacks)},
			})
		}
	}

	indices := make([]uint32, 0, stacks*sectors*6)
	row := uint32(sectors + 1)
	for i := 0; i < stacks; i++ {
		for j := 0; j < sectors; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			indices = append(indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return NewMesh("sphere", vertices, indices)
}

// EncodeMeshBinary encodes a mesh to the gzip-compressed binary format.
func EncodeMeshBinary(mesh *Mesh) ([]byte, error) {
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)

	flags := uint32(0)
	if len(mesh.Indices) > 0 {
		flags |= meshFlagIndexed
	}
	header := []uint32{meshMagic, meshVersion, flags, FloatsPerVertex}
	if err := binary.Write(gzWriter, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	if err := writeString(gzWriter, mesh.Name); err != nil {
		return nil, err
	}
	if err := binary.Write(gzWriter, binary.LittleEndian, uint32(len(mesh.Interleaved))); err != nil {
		return nil, err
	}
	if err := binary.Write(gzWriter, binary.LittleEndian, mesh.Interleaved); err != nil {
		return nil, err
	}
	if flags&meshFlagIndexed != 0 {
		if err := binary.Write(gzWriter, binary.LittleEndian, uint32(len(mesh.Indices))); err != nil {
			return nil, err
		}
		if err := binary.Write(gzWriter, binary.LittleEndian, mesh.Indices); err != nil {
			return nil, err
		}
	}

	if err := gzWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMeshBinary decodes data written by EncodeMeshBinary.
func DecodeMeshBinary(data []byte) (*Mesh, error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	var header [4]uint32
	if err := binary.Read(gzReader, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read mesh header: %w", err)
	}
	if header[0] != meshMagic {
		return nil, fmt.Errorf("%w: %x", ErrInvalidMeshMagic, header[0])
	}
	if header[1] != meshVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMeshVersion, header[1])
	}
	if header[3] != FloatsPerVertex {
		return nil, fmt.Errorf("%w: stride %d", ErrMalformedMesh, header[3])
	}

	mesh := &Mesh{}
	if mesh.Name, err = readString(gzReader); err != nil {
		return nil, err
	}

	var floatCount uint32
	if err := binary.Read(gzReader, binary.LittleEndian, &floatCount); err != nil {
		return nil, err
	}
	if floatCount%FloatsPerVertex != 0 {
		return nil, fmt.Errorf("%w: %d floats", ErrMalformedMesh, floatCount)
	}
	mesh.Interleaved = make([]float32, floatCount)
	if err := binary.Read(gzReader, binary.LittleEndian, mesh.Interleaved); err != nil {
		return nil, err
	}

	if header[2]&meshFlagIndexed != 0 {
		var indexCount uint32
		if err := binary.Read(gzReader, binary.LittleEndian, &indexCount); err != nil {
			return nil, err
		}
		mesh.Indices = make([]uint32, indexCount)
		if err := binary.Read(gzReader, binary.LittleEndian, mesh.Indices); err != nil {
			return nil, err
		}
		vertexCount := uint32(mesh.VertexCount())
		for _, idx := range mesh.Indices {
			if idx >= vertexCount {
				return nil, fmt.Errorf("%w: index %d out of %d vertices", ErrMalformedMesh, idx, vertexCount)
			}
		}
	}

	return mesh, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > 1<<16 {
		return "", fmt.Errorf("%w: name length %d", ErrMalformedMesh, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
