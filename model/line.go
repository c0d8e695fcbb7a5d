package model

import "fmt"

// Line identifies one of the three fixed troon lines.
type Line int

const (
	LineGreen Line = iota
	LineYellow
	LineBlue
)

// Lines lists every line in spawn order.
var Lines = [...]Line{LineGreen, LineYellow, LineBlue}

// NumLines is the number of lines the network carries.
const NumLines = len(Lines)

// ReportOrder is the order line groups appear in a tick report.
var ReportOrder = [...]Line{LineBlue, LineGreen, LineYellow}

// Code returns the single-letter code used in reports ("g", "y", "b").
func (l Line) Code() string {
	switch l {
	case LineGreen:
		return "g"
	case LineYellow:
		return "y"
	case LineBlue:
		return "b"
	default:
		return "?"
	}
}

func (l Line) String() string {
	switch l {
	case LineGreen:
		return "green"
	case LineYellow:
		return "yellow"
	case LineBlue:
		return "blue"
	default:
		return fmt.Sprintf("Line(%d)", int(l))
	}
}

// Valid reports whether l is one of the known lines.
func (l Line) Valid() bool {
	return l >= LineGreen && l <= LineBlue
}

// Stage is the container a troon currently occupies.
type Stage int

const (
	StageWaitingArea Stage = iota
	StagePlatform
	StageLink
)

func (s Stage) String() string {
	switch s {
	case StageWaitingArea:
		return "waiting_area"
	case StagePlatform:
		return "platform"
	case StageLink:
		return "link"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Direction records which way along its line a troon is travelling.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionReverse
)

func (d Direction) String() string {
	if d == DirectionReverse {
		return "reverse"
	}
	return "forward"
}
