// Package terrain turns an elevation grid into a ground mesh, contour
// lines and a flat ground plane.
package terrain

import (
	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
)

// GroundZ is the height of the flat ground plane, just below z=0 so
// ground-level features never fight it
const GroundZ = -0.001

// Options controls terrain mesh generation
type Options struct {
	// ZOffset is added to every vertex
	ZOffset float64
	// Subdivisions is the number of uniform cuts per grid cell edge
	Subdivisions int
}

// BuildMesh emits one vertex per grid sample and one quad per 2×2
// neighbourhood. With subdivisions each cell is split into
// (s+1)×(s+1) quads whose heights are bilinear within the cell.
func BuildMesh(grid *elevation.Grid, opts Options) *mesh.Mesh {
	m := mesh.New(mesh.CategoryTerrain, "terrain")
	if grid == nil {
		return m
	}

	s := max(opts.Subdivisions, 0)
	n := grid.Size()
	step := s + 1
	side := (n-1)*step + 1

	b := grid.Bound()
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]

	m.Vertices = make([]mesh.Vec3, 0, side*side)
	for j := 0; j < side; j++ {
		y := b.Min[1] + h*float64(j)/float64(side-1)
		for i := 0; i < side; i++ {
			x := b.Min[0] + w*float64(i)/float64(side-1)
			m.AddVertex(x, y, fineHeight(grid, i, j, step)+opts.ZOffset)
		}
	}

	m.Faces = make([][]int, 0, (side-1)*(side-1))
	for j := 0; j < side-1; j++ {
		for i := 0; i < side-1; i++ {
			v00 := j*side + i
			m.AddFace(v00, v00+1, v00+side+1, v00+side)
		}
	}
	return m
}

// fineHeight interpolates the subdivided vertex (i, j) inside its cell
func fineHeight(grid *elevation.Grid, i, j, step int) float64 {
	n := grid.Size()
	ci, ri := cellOf(i, step, n)
	cj, rj := cellOf(j, step, n)
	tx, ty := float64(ri)/float64(step), float64(rj)/float64(step)

	if tx == 0 && ty == 0 {
		return grid.At(ci, cj)
	}
	i1, j1 := min(ci+1, n-1), min(cj+1, n-1)
	e0 := grid.At(ci, cj)*(1-tx) + grid.At(i1, cj)*tx
	e1 := grid.At(ci, j1)*(1-tx) + grid.At(i1, j1)*tx
	return e0*(1-ty) + e1*ty
}

func cellOf(k, step, n int) (cell, rem int) {
	cell, rem = k/step, k%step
	if cell >= n-1 {
		return n - 1, 0
	}
	return cell, rem
}

// GroundPlane returns a square plane of the given side centred on the
// origin at GroundZ
func GroundPlane(size float64) *mesh.Mesh {
	m := mesh.New(mesh.CategoryGround, "ground")
	half := size / 2
	a := m.AddVertex(-half, -half, GroundZ)
	b := m.AddVertex(half, -half, GroundZ)
	c := m.AddVertex(half, half, GroundZ)
	d := m.AddVertex(-half, half, GroundZ)
	m.AddFace(a, b, c, d)
	return m
}
