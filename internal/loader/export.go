package loader

import (
	"bufio"
	"fmt"
	"io"

	"GopherShade/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// ExportItem is one named mesh placed in the world by Model.
type ExportItem struct {
	Name  string
	Mesh  *renderer.Mesh
	Model mgl32.Mat4
}

// WriteOBJ writes the items as one OBJ file, each as its own "o" group.
// Positions and normals are baked into world space. Every vertex gets its
// own v, vt and vn entry, so the three indices of a face corner are equal.
func WriteOBJ(w io.Writer, title string, items []ExportItem) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n# Objects: %d\n\n", title, len(items))

	offset := 1 // OBJ indices are 1-based and cumulative across groups
	for _, item := range items {
		fmt.Fprintf(bw, "o %s\n", item.Name)
		mesh := item.Mesh
		if mesh == nil {
			bw.WriteString("\n")
			continue
		}

		normalMatrix := renderer.NormalMatrix(item.Model)
		n := mesh.VertexCount()
		for i := 0; i < n; i++ {
			p := item.Model.Mul4x1(mesh.Vertex(i).Position.Vec4(1)).Vec3()
			fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", p[0], p[1], p[2])
		}
		for i := 0; i < n; i++ {
			nrm := normalMatrix.Mul3x1(mesh.Vertex(i).Normal)
			if nrm.Len() > 0 {
				nrm = nrm.Normalize()
			}
			fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", nrm[0], nrm[1], nrm[2])
		}
		for i := 0; i < n; i++ {
			uv := mesh.Vertex(i).TexCoord
			fmt.Fprintf(bw, "vt %.6f %.6f\n", uv[0], uv[1])
		}
		for t := 0; t < mesh.TriangleCount(); t++ {
			tri := mesh.Triangle(t)
			a, b, c := tri[0]+offset, tri[1]+offset, tri[2]+offset
			fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
		}
		bw.WriteString("\n")
		offset += n
	}
	return bw.Flush()
}
