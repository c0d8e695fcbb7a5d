package model

import "strconv"

// Troon is a single train moving through the network.
//
// Source and Destination are station indices of the edge the troon is
// currently attached to; they change every time it enters a new waiting
// area. Link is the index of that edge's link record.
type Troon struct {
	ID          int
	Line        Line
	Stage       Stage
	Direction   Direction
	Source      int
	Destination int
	Link        int
}

// Describe renders the report token for the troon, e.g. "g3-a0->a1 ".
// names maps station indices to station names.
func (t *Troon) Describe(names []string) string {
	src := names[t.Source]

	var loc string
	switch t.Stage {
	case StageLink:
		loc = src + "->" + names[t.Destination] + " "
	case StagePlatform:
		loc = src + "% "
	default:
		loc = src + "# "
	}
	return t.Line.Code() + strconv.Itoa(t.ID) + "-" + loc
}
