package geocell

import (
	"strings"
)

// Direction is a compass direction between adjacent cells.
type Direction int

const (
	Top Direction = iota
	Bottom
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Indexed by [direction][len(cell) % 2].
var neighborTable = [4][2]string{
	Top:    {"p0r21436x8zb9dcf5h7kjnmqesgutwvy", "bc01fg45238967deuvhjyznpkmstqrwx"},
	Bottom: {"14365h7k9dcfesgujnmqp0r2twvyx8zb", "238967debc01fg45kmstqrwxuvhjyznp"},
	Left:   {"238967debc01fg45kmstqrwxuvhjyznp", "14365h7k9dcfesgujnmqp0r2twvyx8zb"},
	Right:  {"bc01fg45238967deuvhjyznpkmstqrwx", "p0r21436x8zb9dcf5h7kjnmqesgutwvy"},
}

var borderTable = [4][2]string{
	Top:    {"prxz", "bcfguvyz"},
	Bottom: {"028b", "0145hjnp"},
	Left:   {"0145hjnp", "028b"},
	Right:  {"bcfguvyz", "prxz"},
}

// Neighbor returns the adjacent cell of the same length in direction dir.
func Neighbor(cell string, dir Direction) (string, error) {
	if err := Validate(cell); err != nil {
		return "", err
	}
	if dir < Top || dir > Right {
		return "", invalidCell(cell, "unknown direction "+dir.String())
	}
	return neighbor(cell, dir), nil
}

// neighbor expects a validated cell. Recursion depth is bounded by len(cell).
func neighbor(cell string, dir Direction) string {
	if cell == "" {
		return ""
	}

	last := cell[len(cell)-1]
	parent := cell[:len(cell)-1]
	parity := len(cell) % 2

	if strings.IndexByte(borderTable[dir][parity], last) >= 0 && parent != "" {
		parent = neighbor(parent, dir)
	}

	idx := strings.IndexByte(neighborTable[dir][parity], last)
	return parent + string(base32[idx])
}

// Neighbors9 returns the cell and its eight neighbors in the order
// center, N, NE, E, SE, S, SW, W, NW. Cells near the poles or the
// antimeridian may repeat; use Dedupe when treating the result as a set.
func Neighbors9(cell string) ([]string, error) {
	if err := Validate(cell); err != nil {
		return nil, err
	}

	n := neighbor(cell, Top)
	s := neighbor(cell, Bottom)
	e := neighbor(cell, Right)
	w := neighbor(cell, Left)

	return []string{
		cell,
		n,
		neighbor(n, Right),
		e,
		neighbor(s, Right),
		s,
		neighbor(s, Left),
		w,
		neighbor(n, Left),
	}, nil
}

// Dedupe drops repeated cells, keeping first occurrences in order.
func Dedupe(cells []string) []string {
	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
