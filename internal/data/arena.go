package data

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Box is an axis-aligned obstacle.
type Box struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// StaticTarget is a target entity placed by the map (a survivor, a
// barricade), as opposed to players that join at runtime.
type StaticTarget struct {
	Name     string     `yaml:"name"`
	Position [3]float64 `yaml:"position"`
	MaxHP    int        `yaml:"max_hp"`
	Radius   float64    `yaml:"radius"`
}

// Arena is the play area: a walkable cell grid plus solid obstacles.
// The layout is one text row per Z cell, one character per X cell:
// '.' walkable, '#' blocked. Cells outside the layout are blocked.
type Arena struct {
	Name      string         `yaml:"name"`
	CellSize  float64        `yaml:"cell_size"`
	Origin    [3]float64     `yaml:"origin"` // min corner; Y is the floor height
	Layout    string         `yaml:"layout"`
	Obstacles []Box          `yaml:"obstacles"`
	Targets   []StaticTarget `yaml:"targets"`

	width   int
	depth   int
	blocked []bool // [z*width + x]
}

// LoadArena loads the arena map from a YAML file.
func LoadArena(path string) (*Arena, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arena %s: %w", path, err)
	}
	var a Arena
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("parse arena: %w", err)
	}
	if err := a.build(); err != nil {
		return nil, fmt.Errorf("arena %q: %w", a.Name, err)
	}
	return &a, nil
}

// NewArena builds an arena in code (tests, tools).
func NewArena(name string, cellSize float64, origin r3.Vec, layout string) (*Arena, error) {
	a := &Arena{Name: name, CellSize: cellSize, Origin: [3]float64{origin.X, origin.Y, origin.Z}, Layout: layout}
	if err := a.build(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Arena) build() error {
	if a.CellSize <= 0 {
		return errors.New("cell_size must be positive")
	}
	var rows []string
	scanner := bufio.NewScanner(strings.NewReader(a.Layout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rows = append(rows, line)
		if len(line) > a.width {
			a.width = len(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(rows) == 0 || a.width == 0 {
		return errors.New("empty layout")
	}
	a.depth = len(rows)
	a.blocked = make([]bool, a.width*a.depth)
	for z, row := range rows {
		for x := 0; x < a.width; x++ {
			c := byte('#')
			if x < len(row) {
				c = row[x]
			}
			switch c {
			case '.':
			case '#':
				a.blocked[z*a.width+x] = true
			default:
				return fmt.Errorf("layout row %d: unknown cell %q", z, c)
			}
		}
	}
	for i, b := range a.Obstacles {
		for k := 0; k < 3; k++ {
			if b.Min[k] > b.Max[k] {
				return fmt.Errorf("obstacle %d: min > max", i)
			}
		}
	}
	return nil
}

func (a *Arena) Width() int { return a.width }
func (a *Arena) Depth() int { return a.depth }

// Floor is the height agents stand on.
func (a *Arena) Floor() float64 { return a.Origin[1] }

// Cell returns the grid cell containing p.
func (a *Arena) Cell(p r3.Vec) (cx, cz int) {
	cx = int(math.Floor((p.X - a.Origin[0]) / a.CellSize))
	cz = int(math.Floor((p.Z - a.Origin[2]) / a.CellSize))
	return cx, cz
}

// CellCenter returns the floor point at the center of a cell.
func (a *Arena) CellCenter(cx, cz int) r3.Vec {
	return r3.Vec{
		X: a.Origin[0] + (float64(cx)+0.5)*a.CellSize,
		Y: a.Origin[1],
		Z: a.Origin[2] + (float64(cz)+0.5)*a.CellSize,
	}
}

func (a *Arena) InBounds(cx, cz int) bool {
	return cx >= 0 && cz >= 0 && cx < a.width && cz < a.depth
}

// Walkable reports whether a cell is inside the layout and not blocked.
func (a *Arena) Walkable(cx, cz int) bool {
	return a.InBounds(cx, cz) && !a.blocked[cz*a.width+cx]
}

// SetBlocked changes a cell at runtime. Out-of-bounds cells are ignored.
func (a *Arena) SetBlocked(cx, cz int, blocked bool) {
	if a.InBounds(cx, cz) {
		a.blocked[cz*a.width+cx] = blocked
	}
}

func (b Box) MinVec() r3.Vec { return r3.Vec{X: b.Min[0], Y: b.Min[1], Z: b.Min[2]} }
func (b Box) MaxVec() r3.Vec { return r3.Vec{X: b.Max[0], Y: b.Max[1], Z: b.Max[2]} }

func (t StaticTarget) Pos() r3.Vec {
	return r3.Vec{X: t.Position[0], Y: t.Position[1], Z: t.Position[2]}
}
