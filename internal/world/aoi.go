package world

import (
	"math"
	"sort"

	"github.com/l1jgo/horde/internal/core/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// AOIGrid implements a cell-based Area of Interest index on the XZ plane.
// Accessed only from the game loop goroutine, no locks.

type cellKey struct {
	cx int32
	cz int32
}

// AOIGrid tracks which entities are in which cells.
type AOIGrid struct {
	cellSize float64
	cells    map[cellKey]map[ecs.EntityID]struct{}
}

func NewAOIGrid(cellSize float64) *AOIGrid {
	if cellSize <= 0 {
		cellSize = 8
	}
	return &AOIGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *AOIGrid) coord(v float64) int32 {
	return int32(math.Floor(v / g.cellSize))
}

func (g *AOIGrid) key(p r3.Vec) cellKey {
	return cellKey{cx: g.coord(p.X), cz: g.coord(p.Z)}
}

// Add places an entity into the grid.
func (g *AOIGrid) Add(id ecs.EntityID, p r3.Vec) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an entity out of the grid.
func (g *AOIGrid) Remove(id ecs.EntityID, p r3.Vec) {
	k := g.key(p)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, from, to r3.Vec) {
	if g.key(from) == g.key(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// Nearby returns every entity in the cells overlapping the square of half
// size radius around p, sorted by handle so callers iterate in a stable
// order. Caller does fine-grained distance filtering.
func (g *AOIGrid) Nearby(p r3.Vec, radius float64) []ecs.EntityID {
	x0, x1 := g.coord(p.X-radius), g.coord(p.X+radius)
	z0, z1 := g.coord(p.Z-radius), g.coord(p.Z+radius)
	var result []ecs.EntityID
	for cx := x0; cx <= x1; cx++ {
		for cz := z0; cz <= z1; cz++ {
			for id := range g.cells[cellKey{cx: cx, cz: cz}] {
				result = append(result, id)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
