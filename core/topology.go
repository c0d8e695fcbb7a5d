package core

import (
	"fmt"

	"github.com/signalsfoundry/troon-simulator/model"
)

// noLink marks a line a link does not participate in.
const noLink = -1

// LinkSpec is the immutable description of one directed edge.
type LinkSpec struct {
	ID          int
	Source      int
	Destination int
	Distance    int

	// Next holds, per line, the link a troon moves onto after this one, or
	// noLink when the line never uses this edge.
	Next [model.NumLines]int
	// Direction holds, per line, which walk of the line this edge belongs to.
	Direction [model.NumLines]model.Direction
}

// OnLine reports whether line l runs over this link.
func (s *LinkSpec) OnLine(l model.Line) bool { return s.Next[l] != noLink }

// Terminals are the two links a line spawns troons onto.
type Terminals struct {
	Forward int
	Reverse int
}

// Topology is the assembled directed link graph.
type Topology struct {
	Stations  *StationRegistry
	Links     []LinkSpec
	Terminals [model.NumLines]Terminals
	// Routes holds each line's station sequence in travel order.
	Routes [model.NumLines][]int

	index map[[2]int]int
}

// BuildTopology turns per-line station sequences into directed links. mat is
// the full station×station distance matrix where 0 means "no edge". routes
// is indexed by model.Line.
func BuildTopology(reg *StationRegistry, mat [][]int, routes [model.NumLines][]string) (*Topology, error) {
	n := reg.Len()
	if len(mat) != n {
		return nil, fmt.Errorf("%w: %d rows for %d stations", ErrInvalidMatrix, len(mat), n)
	}
	for i, row := range mat {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), n)
		}
	}

	t := &Topology{
		Stations: reg,
		index:    make(map[[2]int]int),
	}

	for _, line := range model.Lines {
		seq, err := resolveRoute(reg, line, routes[line])
		if err != nil {
			return nil, err
		}
		t.Routes[line] = seq

		if err := t.wire(mat, line, seq, model.DirectionForward); err != nil {
			return nil, err
		}
		if err := t.wire(mat, line, reversed(seq), model.DirectionReverse); err != nil {
			return nil, err
		}

		k := len(seq)
		t.Terminals[line] = Terminals{
			Forward: t.index[[2]int{seq[0], seq[1]}],
			Reverse: t.index[[2]int{seq[k-1], seq[k-2]}],
		}
	}
	return t, nil
}

func resolveRoute(reg *StationRegistry, line model.Line, names []string) ([]int, error) {
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: %s line has %d stations, need at least 2", ErrInvalidLine, line, len(names))
	}
	seq := make([]int, len(names))
	seen := make(map[int]bool, len(names))
	for i, name := range names {
		id, err := reg.Index(name)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", line, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s line visits %q twice", ErrInvalidLine, line, name)
		}
		seen[id] = true
		seq[i] = id
	}
	return seq, nil
}

// wire walks seq once, creating links for unseen pairs and pointing each
// edge at its successor. The last edge loops back onto the reversed edge.
func (t *Topology) wire(mat [][]int, line model.Line, seq []int, dir model.Direction) error {
	for i := 0; i+1 < len(seq); i++ {
		cur, err := t.ensureLink(mat, seq[i], seq[i+1])
		if err != nil {
			return fmt.Errorf("%s line: %w", line, err)
		}

		var next int
		if i+2 < len(seq) {
			next, err = t.ensureLink(mat, seq[i+1], seq[i+2])
		} else {
			next, err = t.ensureLink(mat, seq[i+1], seq[i])
		}
		if err != nil {
			return fmt.Errorf("%s line: %w", line, err)
		}

		t.Links[cur].Next[line] = next
		t.Links[cur].Direction[line] = dir
	}
	return nil
}

func (t *Topology) ensureLink(mat [][]int, src, dst int) (int, error) {
	key := [2]int{src, dst}
	if id, ok := t.index[key]; ok {
		return id, nil
	}
	dist := mat[src][dst]
	if dist <= 0 {
		return 0, fmt.Errorf("%w: no distance from %q to %q", ErrInvalidMatrix, t.Stations.Name(src), t.Stations.Name(dst))
	}

	spec := LinkSpec{
		ID:          len(t.Links),
		Source:      src,
		Destination: dst,
		Distance:    dist,
	}
	for i := range spec.Next {
		spec.Next[i] = noLink
	}
	t.Links = append(t.Links, spec)
	t.index[key] = spec.ID
	return spec.ID, nil
}

// LinkID returns the link for the directed pair (src, dst).
func (t *Topology) LinkID(src, dst int) (int, bool) {
	id, ok := t.index[[2]int{src, dst}]
	return id, ok
}

// Walk follows next-link pointers for line starting at its forward terminal
// and returns the visited links, stopping when the terminal comes round
// again. ok is false if the chain never closes.
func (t *Topology) Walk(line model.Line) (walk []int, ok bool) {
	start := t.Terminals[line].Forward
	cur := start
	for steps := 0; steps <= len(t.Links); steps++ {
		walk = append(walk, cur)
		cur = t.Links[cur].Next[line]
		if cur == noLink {
			return walk, false
		}
		if cur == start {
			return walk, true
		}
	}
	return walk, false
}

// RoundTripDistance is the summed link distance of one full walk of line.
func (t *Topology) RoundTripDistance(line model.Line) int {
	walk, _ := t.Walk(line)
	total := 0
	for _, id := range walk {
		total += t.Links[id].Distance
	}
	return total
}

func reversed(seq []int) []int {
	out := make([]int, len(seq))
	for i, v := range seq {
		out[len(seq)-1-i] = v
	}
	return out
}
