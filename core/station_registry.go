package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStation = errors.New("invalid station")
	ErrUnknownStation = errors.New("unknown station")
	ErrInvalidMatrix  = errors.New("invalid distance matrix")
	ErrInvalidLine    = errors.New("invalid line")
)

// Station is a named stop in the network.
type Station struct {
	ID         int
	Name       string
	Popularity int
}

// StationRegistry maps station names to indices and back. It is built once
// and never mutated afterwards.
type StationRegistry struct {
	stations []Station
	byName   map[string]int
}

// NewStationRegistry validates names and popularities (parallel slices) and
// returns a registry whose station IDs follow the input order.
func NewStationRegistry(names []string, popularities []int) (*StationRegistry, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no stations", ErrInvalidStation)
	}
	if len(names) != len(popularities) {
		return nil, fmt.Errorf("%w: %d names but %d popularities", ErrInvalidStation, len(names), len(popularities))
	}

	r := &StationRegistry{
		stations: make([]Station, len(names)),
		byName:   make(map[string]int, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: station %d has an empty name", ErrInvalidStation, i)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidStation, name)
		}
		if popularities[i] < 1 {
			return nil, fmt.Errorf("%w: station %q popularity %d < 1", ErrInvalidStation, name, popularities[i])
		}
		r.byName[name] = i
		r.stations[i] = Station{ID: i, Name: name, Popularity: popularities[i]}
	}
	return r, nil
}

// Len returns the number of stations.
func (r *StationRegistry) Len() int { return len(r.stations) }

// Index returns the ID of the named station.
func (r *StationRegistry) Index(name string) (int, error) {
	id, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStation, name)
	}
	return id, nil
}

// Name returns the name of station id.
func (r *StationRegistry) Name(id int) string { return r.stations[id].Name }

// Station returns the station with the given ID.
func (r *StationRegistry) Station(id int) Station { return r.stations[id] }

// Names returns a fresh slice of station names indexed by ID.
func (r *StationRegistry) Names() []string {
	names := make([]string, len(r.stations))
	for i, s := range r.stations {
		names[i] = s.Name
	}
	return names
}
