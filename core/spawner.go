package core

import "github.com/signalsfoundry/troon-simulator/model"

// Spawn describes one troon created at a line terminal.
type Spawn struct {
	ID        int
	Line      model.Line
	Link      int
	Direction model.Direction
}

// Spawner hands out troon IDs and decides which terminals receive a new
// troon each tick. Its decisions depend only on the caps, so independent
// copies stay in lockstep.
type Spawner struct {
	terminals [model.NumLines]Terminals
	caps      [model.NumLines]int
	spawned   [model.NumLines]int
	nextID    int
}

// NewSpawner returns a spawner for topo with per-line caps.
func NewSpawner(topo *Topology, caps [model.NumLines]int) *Spawner {
	return &Spawner{terminals: topo.Terminals, caps: caps}
}

// Tick appends this tick's spawns to dst: green, yellow, blue, forward
// terminal before reverse, each gated by its line cap.
func (s *Spawner) Tick(dst []Spawn) []Spawn {
	for _, line := range model.Lines {
		term := s.terminals[line]
		if s.spawned[line] < s.caps[line] {
			dst = append(dst, s.spawn(line, term.Forward, model.DirectionForward))
		}
		if s.spawned[line] < s.caps[line] {
			dst = append(dst, s.spawn(line, term.Reverse, model.DirectionReverse))
		}
	}
	return dst
}

func (s *Spawner) spawn(line model.Line, link int, dir model.Direction) Spawn {
	sp := Spawn{ID: s.nextID, Line: line, Link: link, Direction: dir}
	s.nextID++
	s.spawned[line]++
	return sp
}

// Spawned returns how many troons line has received so far.
func (s *Spawner) Spawned(line model.Line) int { return s.spawned[line] }

// Total returns the number of troons spawned on all lines.
func (s *Spawner) Total() int { return s.nextID }

// Troon materialises sp.
func (sp Spawn) Troon() *model.Troon {
	return &model.Troon{ID: sp.ID, Line: sp.Line, Direction: sp.Direction}
}
