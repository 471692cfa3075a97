package world

import (
	"math"

	"github.com/l1jgo/horde/internal/data"
	"gonum.org/v1/gonum/spatial/r3"
)

type cell struct{ x, z int }

var neighbours = [4]cell{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// NavGrid answers walkability questions over the arena's cell grid.
// Connectivity is precomputed as component labels and rebuilt lazily after
// a cell changes.
type NavGrid struct {
	arena *data.Arena
	comp  []int32 // component per cell, -1 when blocked
	dirty bool
}

func NewNavGrid(a *data.Arena) *NavGrid {
	n := &NavGrid{arena: a, dirty: true}
	n.relabel()
	return n
}

// SetBlocked changes a cell (a door, a barricade) and invalidates the labels.
func (n *NavGrid) SetBlocked(cx, cz int, blocked bool) {
	n.arena.SetBlocked(cx, cz, blocked)
	n.dirty = true
}

func (n *NavGrid) relabel() {
	w, d := n.arena.Width(), n.arena.Depth()
	if len(n.comp) != w*d {
		n.comp = make([]int32, w*d)
	}
	for i := range n.comp {
		n.comp[i] = -1
	}
	var label int32
	queue := make([]cell, 0, 64)
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			if !n.arena.Walkable(x, z) || n.comp[z*w+x] >= 0 {
				continue
			}
			n.comp[z*w+x] = label
			queue = append(queue[:0], cell{x, z})
			for len(queue) > 0 {
				c := queue[0]
				queue = queue[1:]
				for _, nb := range neighbours {
					nx, nz := c.x+nb.x, c.z+nb.z
					if !n.arena.Walkable(nx, nz) || n.comp[nz*w+nx] >= 0 {
						continue
					}
					n.comp[nz*w+nx] = label
					queue = append(queue, cell{nx, nz})
				}
			}
			label++
		}
	}
	n.dirty = false
}

func (n *NavGrid) component(p r3.Vec) int32 {
	if n.dirty {
		n.relabel()
	}
	cx, cz := n.arena.Cell(p)
	if !n.arena.InBounds(cx, cz) {
		return -1
	}
	return n.comp[cz*n.arena.Width()+cx]
}

// Walkable reports whether p lies on a walkable cell.
func (n *NavGrid) Walkable(p r3.Vec) bool {
	cx, cz := n.arena.Cell(p)
	return n.arena.Walkable(cx, cz)
}

// Connected reports whether a walkable route joins the cells of a and b.
func (n *NavGrid) Connected(a, b r3.Vec) bool {
	ca := n.component(a)
	return ca >= 0 && ca == n.component(b)
}

// Sample projects p onto the walkable surface. A point on a walkable cell is
// kept (at floor height); otherwise the nearest walkable cell center within
// tolerance is returned.
func (n *NavGrid) Sample(p r3.Vec, tolerance float64) (r3.Vec, bool) {
	floor := n.arena.Floor()
	if n.Walkable(p) {
		return r3.Vec{X: p.X, Y: floor, Z: p.Z}, true
	}
	cx, cz := n.arena.Cell(p)
	reach := int(math.Ceil(tolerance / n.arena.CellSize))
	best, bestDist := r3.Vec{}, math.Inf(1)
	for dz := -reach; dz <= reach; dz++ {
		for dx := -reach; dx <= reach; dx++ {
			if !n.arena.Walkable(cx+dx, cz+dz) {
				continue
			}
			c := n.arena.CellCenter(cx+dx, cz+dz)
			d := math.Hypot(c.X-p.X, c.Z-p.Z)
			if d <= tolerance && d < bestDist {
				best, bestDist = c, d
			}
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// LineClear walks the segment a-b in quarter-cell steps and reports whether
// every sample is walkable.
func (n *NavGrid) LineClear(a, b r3.Vec) bool {
	dx, dz := b.X-a.X, b.Z-a.Z
	dist := math.Hypot(dx, dz)
	step := n.arena.CellSize / 4
	steps := int(math.Ceil(dist / step))
	for i := 0; i <= steps; i++ {
		t := 1.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		if !n.Walkable(r3.Vec{X: a.X + dx*t, Z: a.Z + dz*t}) {
			return false
		}
	}
	return true
}

// Path returns the cells of a shortest 4-connected route from the cell of a
// to the cell of b, both included. Nil when there is none.
func (n *NavGrid) Path(a, b r3.Vec) []cell {
	if !n.Connected(a, b) {
		return nil
	}
	w := n.arena.Width()
	ax, az := n.arena.Cell(a)
	bx, bz := n.arena.Cell(b)
	start, goal := cell{ax, az}, cell{bx, bz}
	if start == goal {
		return []cell{start}
	}
	parent := make(map[int]int, 64)
	parent[az*w+ax] = -1
	queue := []cell{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == goal {
			break
		}
		for _, nb := range neighbours {
			nx, nz := c.x+nb.x, c.z+nb.z
			if !n.arena.Walkable(nx, nz) {
				continue
			}
			if _, seen := parent[nz*w+nx]; seen {
				continue
			}
			parent[nz*w+nx] = c.z*w + c.x
			queue = append(queue, cell{nx, nz})
		}
	}
	var rev []cell
	for i := goal.z*w + goal.x; i >= 0; i = parent[i] {
		rev = append(rev, cell{i % w, i / w})
	}
	path := make([]cell, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path
}

// maxLookahead bounds how far along a route Waypoint searches for a
// straight shot.
const maxLookahead = 16

// Waypoint picks the farthest cell center along the route to b, within
// maxLookahead cells, that can be reached from a in a straight line.
func (n *NavGrid) Waypoint(a, b r3.Vec) (r3.Vec, bool) {
	path := n.Path(a, b)
	if len(path) < 2 {
		return r3.Vec{}, false
	}
	last := len(path) - 1
	if last > maxLookahead {
		last = maxLookahead
	}
	for i := last; i >= 1; i-- {
		c := n.arena.CellCenter(path[i].x, path[i].z)
		if n.LineClear(a, c) {
			return c, true
		}
	}
	return n.arena.CellCenter(path[1].x, path[1].z), true
}
