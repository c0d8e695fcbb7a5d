package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/troon-simulator/model"
)

// ErrInvalidScenario reports a run parameter outside its allowed range.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is the complete input of one simulation run.
type Scenario struct {
	StationNames []string `json:"station_names"`
	Popularities []int    `json:"popularities"`
	// Distances is the station×station transit-time matrix; 0 means the
	// stations are not directly connected.
	Distances [][]int `json:"distances"`

	GreenLine  []string `json:"green_line"`
	YellowLine []string `json:"yellow_line"`
	BlueLine   []string `json:"blue_line"`

	Ticks int `json:"ticks"`

	GreenTroons  int `json:"green_troons"`
	YellowTroons int `json:"yellow_troons"`
	BlueTroons   int `json:"blue_troons"`

	// LinesToPrint is the number of trailing ticks that produce a report.
	LinesToPrint int `json:"lines_to_print"`
}

// Routes returns the line station sequences indexed by model.Line.
func (s *Scenario) Routes() [model.NumLines][]string {
	return [model.NumLines][]string{
		model.LineGreen:  s.GreenLine,
		model.LineYellow: s.YellowLine,
		model.LineBlue:   s.BlueLine,
	}
}

// Caps returns the per-line spawn caps indexed by model.Line.
func (s *Scenario) Caps() [model.NumLines]int {
	return [model.NumLines]int{
		model.LineGreen:  s.GreenTroons,
		model.LineYellow: s.YellowTroons,
		model.LineBlue:   s.BlueTroons,
	}
}

// Validate checks the scalar run parameters.
func (s *Scenario) Validate() error {
	if s.Ticks < 0 {
		return fmt.Errorf("%w: ticks %d < 0", ErrInvalidScenario, s.Ticks)
	}
	if s.LinesToPrint < 0 {
		return fmt.Errorf("%w: lines to print %d < 0", ErrInvalidScenario, s.LinesToPrint)
	}
	for _, line := range model.Lines {
		if c := s.Caps()[line]; c < 0 {
			return fmt.Errorf("%w: %s troon cap %d < 0", ErrInvalidScenario, line, c)
		}
	}
	return nil
}

// Topology validates the scenario and assembles its link graph.
func (s *Scenario) Topology() (*Topology, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	reg, err := NewStationRegistry(s.StationNames, s.Popularities)
	if err != nil {
		return nil, err
	}
	return BuildTopology(reg, s.Distances, s.Routes())
}

// ShouldReport reports whether tick falls in the trailing print window.
func (s *Scenario) ShouldReport(tick int) bool {
	return s.Ticks-tick <= s.LinesToPrint
}
