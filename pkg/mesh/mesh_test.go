package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendReindexes(t *testing.T) {
	a := New(CategoryRoad, "way/1")
	a.AddFace(a.AddVertex(0, 0, 0), a.AddVertex(1, 0, 0), a.AddVertex(1, 1, 0))

	b := New(CategoryRoad, "way/2")
	b.AddFace(b.AddVertex(5, 5, 0), b.AddVertex(6, 5, 0), b.AddVertex(6, 6, 0))
	b.AddEdge(0, 2)

	a.Append(b)

	require.Len(t, a.Vertices, 6)
	require.Len(t, a.Faces, 2)
	assert.Equal(t, []int{3, 4, 5}, a.Faces[1])
	assert.Equal(t, [2]int{3, 5}, a.Edges[0])
	assert.NoError(t, a.Validate())
}

func TestValidate(t *testing.T) {
	m := New(CategoryWater, "way/3")
	m.AddVertex(0, 0, 0)
	m.AddVertex(1, 0, 0)
	m.AddFace(0, 1, 2)
	assert.Error(t, m.Validate())

	m.AddVertex(0, 1, 0)
	assert.NoError(t, m.Validate())

	m.Faces = append(m.Faces, []int{0, 1})
	assert.Error(t, m.Validate())
}

func TestBounds(t *testing.T) {
	m := New(CategoryTerrain, "terrain")
	m.AddVertex(-1, 2, 3)
	m.AddVertex(4, -5, 0)

	min, max := m.Bounds()
	assert.Equal(t, Vec3{-1, -5, 0}, min)
	assert.Equal(t, Vec3{4, 2, 3}, max)

	var empty *Mesh
	assert.True(t, empty.Empty())
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, "way/42", SourceID("way", 42))
}
