package core

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedInput reports input that does not follow the scenario format.
var ErrMalformedInput = errors.New("malformed scenario input")

// ParseScenario reads the whitespace-separated troons input format:
//
//	S
//	<S station names>
//	<S popularities>
//	<S×S distance matrix>
//	<green line stations>
//	<yellow line stations>
//	<blue line stations>
//	N
//	g y b
//	L
//
// Each line's stations must sit on their own text line; everything else
// may be split across lines freely.
func ParseScenario(r io.Reader) (*Scenario, error) {
	sr, err := newScenarioReader(r)
	if err != nil {
		return nil, err
	}

	n, err := sr.int("station count")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: station count %d", ErrMalformedInput, n)
	}

	sc := &Scenario{
		StationNames: make([]string, n),
		Popularities: make([]int, n),
		Distances:    make([][]int, n),
	}
	for i := range sc.StationNames {
		if sc.StationNames[i], err = sr.token("station name"); err != nil {
			return nil, err
		}
	}
	for i := range sc.Popularities {
		if sc.Popularities[i], err = sr.int("popularity"); err != nil {
			return nil, err
		}
	}
	for i := range sc.Distances {
		sc.Distances[i] = make([]int, n)
		for j := range sc.Distances[i] {
			if sc.Distances[i][j], err = sr.int("distance"); err != nil {
				return nil, err
			}
		}
	}

	if sc.GreenLine, err = sr.line("green line"); err != nil {
		return nil, err
	}
	if sc.YellowLine, err = sr.line("yellow line"); err != nil {
		return nil, err
	}
	if sc.BlueLine, err = sr.line("blue line"); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst  *int
		what string
	}{
		{&sc.Ticks, "tick count"},
		{&sc.GreenTroons, "green troon count"},
		{&sc.YellowTroons, "yellow troon count"},
		{&sc.BlueTroons, "blue troon count"},
		{&sc.LinesToPrint, "lines to print"},
	} {
		if *f.dst, err = sr.int(f.what); err != nil {
			return nil, err
		}
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// LoadScenarioJSON decodes a Scenario from its JSON form.
func LoadScenarioJSON(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: decode failed: %v", ErrMalformedInput, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// scenarioReader hands out whitespace tokens while still allowing a whole
// text line to be read where the format is line-oriented.
type scenarioReader struct {
	lines  []string
	row    int
	fields []string
	col    int
}

func newScenarioReader(r io.Reader) (*scenarioReader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	sr := &scenarioReader{}
	for sc.Scan() {
		sr.lines = append(sr.lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return sr, nil
}

func (sr *scenarioReader) token(what string) (string, error) {
	for sr.col >= len(sr.fields) {
		if sr.row >= len(sr.lines) {
			return "", fmt.Errorf("%w: unexpected end of input reading %s", ErrMalformedInput, what)
		}
		sr.fields = strings.Fields(sr.lines[sr.row])
		sr.row++
		sr.col = 0
	}
	tok := sr.fields[sr.col]
	sr.col++
	return tok, nil
}

func (sr *scenarioReader) int(what string) (int, error) {
	tok, err := sr.token(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer (line %d)", ErrMalformedInput, what, tok, sr.row)
	}
	return v, nil
}

// line returns the unread remainder of the current text line, or the next
// text line if the current one is exhausted.
func (sr *scenarioReader) line(what string) ([]string, error) {
	if sr.col < len(sr.fields) {
		rest := sr.fields[sr.col:]
		sr.col = len(sr.fields)
		return rest, nil
	}
	if sr.row >= len(sr.lines) {
		return nil, fmt.Errorf("%w: unexpected end of input reading %s", ErrMalformedInput, what)
	}
	sr.fields = strings.Fields(sr.lines[sr.row])
	sr.row++
	sr.col = len(sr.fields)
	return sr.fields, nil
}
