package core

import (
	"fmt"
	"slices"

	"github.com/signalsfoundry/troon-simulator/model"
)

// Rules are the tunable constants of the congestion model.
type Rules struct {
	// DwellPadding is added to a station's popularity to get the number of
	// ticks a troon must dwell on a platform before it may depart.
	DwellPadding int
	// LinkCooldown is the number of ticks a link must have been empty before
	// a platform may push a troon onto it.
	LinkCooldown int
}

// DefaultRules returns the standard constants: dwell popularity+2 and a
// one-tick link cooldown.
func DefaultRules() Rules {
	return Rules{DwellPadding: 2, LinkCooldown: 1}
}

// Link is the in-transit stage of a directed edge.
type Link struct {
	occupant       *model.Troon
	elapsedEmpty   int
	elapsedTransit int
}

// Platform is the dwell stage in front of a link.
type Platform struct {
	occupant  *model.Troon
	threshold int
	dwell     int
}

// WaitingArea queues troons in front of a platform. Troons delivered off a
// link may board in the same tick; freshly spawned troons wait one tick.
type WaitingArea struct {
	ready    []*model.Troon // ascending ID
	arrivals []*model.Troon // spawned this tick
}

// Network owns the Link/Platform/WaitingArea triple for a contiguous run
// [lo, hi) of a topology's edges. Every method takes absolute link indices
// as used by Topology.Links; unit k of each slice backs link lo+k.
type Network struct {
	topo  *Topology
	rules Rules
	lo    int

	links     []Link
	platforms []Platform
	areas     []WaitingArea
}

// NewNetwork allocates empty state units for every link in topo.
func NewNetwork(topo *Topology, rules Rules) *Network {
	return NewNetworkRange(topo, rules, 0, len(topo.Links))
}

// NewNetworkRange allocates state units only for links [lo, hi). Indexing
// a link outside the range panics.
func NewNetworkRange(topo *Topology, rules Rules, lo, hi int) *Network {
	if lo < 0 || hi > len(topo.Links) || lo > hi {
		panic(fmt.Sprintf("link range [%d,%d) outside topology of %d links", lo, hi, len(topo.Links)))
	}
	n := &Network{
		topo:      topo,
		rules:     rules,
		lo:        lo,
		links:     make([]Link, hi-lo),
		platforms: make([]Platform, hi-lo),
		areas:     make([]WaitingArea, hi-lo),
	}
	for k := range n.platforms {
		pop := topo.Stations.Station(topo.Links[lo+k].Source).Popularity
		n.platforms[k].threshold = pop + rules.DwellPadding
	}
	return n
}

// Topology returns the graph the network was built from.
func (n *Network) Topology() *Topology { return n.topo }

// Len returns the number of edges the network holds state for.
func (n *Network) Len() int { return len(n.links) }

// Range returns the absolute link indices [lo, hi) backed by n.
func (n *Network) Range() (lo, hi int) { return n.lo, n.lo + len(n.links) }

// ProcessLink advances link i by one tick. When the occupant finishes its
// transit it is removed and returned together with the index of the link
// whose waiting area it must join; the caller delivers it with
// AddToWaitingArea (or hands it to another worker).
func (n *Network) ProcessLink(i int) (*model.Troon, int) {
	l := &n.links[i-n.lo]
	if l.occupant == nil {
		l.elapsedEmpty++
		return nil, noLink
	}

	spec := &n.topo.Links[i]
	if l.elapsedTransit < spec.Distance-1 {
		l.elapsedTransit++
		return nil, noLink
	}

	t := l.occupant
	l.occupant = nil
	l.elapsedEmpty = 0
	l.elapsedTransit = 0

	next := spec.Next[t.Line]
	if next == noLink {
		panic(fmt.Sprintf("troon %d on link %d has no %s successor", t.ID, i, t.Line))
	}
	return t, next
}

// SafeToGo reports whether link i may accept a troon this tick.
func (n *Network) SafeToGo(i int) bool {
	l := &n.links[i-n.lo]
	return l.occupant == nil && l.elapsedEmpty >= n.rules.LinkCooldown
}

func (n *Network) addToLink(i int, t *model.Troon) {
	l := &n.links[i-n.lo]
	if l.occupant != nil {
		panic(fmt.Sprintf("link %d already holds troon %d, cannot accept troon %d", i, l.occupant.ID, t.ID))
	}
	l.occupant = t
	t.Stage = model.StageLink
}

// ProcessWaitPlatform counts one tick of dwell for an occupied platform.
func (n *Network) ProcessWaitPlatform(i int) {
	if p := &n.platforms[i-n.lo]; p.occupant != nil {
		p.dwell++
	}
}

// ProcessPushPlatform moves the platform occupant onto its link once it
// has dwelt long enough and the link is clear.
func (n *Network) ProcessPushPlatform(i int) {
	p := &n.platforms[i-n.lo]
	if p.occupant == nil || p.dwell < p.threshold || !n.SafeToGo(i) {
		return
	}
	p.dwell = 0
	n.addToLink(i, p.occupant)
	p.occupant = nil
}

// PlatformOccupied reports whether platform i holds a troon.
func (n *Network) PlatformOccupied(i int) bool { return n.platforms[i-n.lo].occupant != nil }

func (n *Network) addToPlatform(i int, t *model.Troon) {
	p := &n.platforms[i-n.lo]
	if p.occupant != nil {
		panic(fmt.Sprintf("platform %d already holds troon %d, cannot accept troon %d", i, p.occupant.ID, t.ID))
	}
	p.occupant = t
	t.Stage = model.StagePlatform
}

// AddToWaitingArea queues t in front of link i and rebinds it to that edge.
// The troon is eligible to board in the same tick.
func (n *Network) AddToWaitingArea(i int, t *model.Troon) {
	n.bind(i, t)
	n.areas[i-n.lo].enqueue(t)
}

// SpawnIntoWaitingArea queues a freshly spawned troon in front of link i.
// It becomes eligible to board from the next ProcessWaitingArea call
// onwards, so a new troon is always reported in its waiting area first.
func (n *Network) SpawnIntoWaitingArea(i int, t *model.Troon) {
	n.bind(i, t)
	a := &n.areas[i-n.lo]
	a.arrivals = append(a.arrivals, t)
}

func (n *Network) bind(i int, t *model.Troon) {
	spec := &n.topo.Links[i]
	t.Source = spec.Source
	t.Destination = spec.Destination
	t.Link = i
	t.Direction = spec.Direction[t.Line]
	t.Stage = model.StageWaitingArea
}

func (a *WaitingArea) enqueue(t *model.Troon) {
	pos, _ := slices.BinarySearchFunc(a.ready, t.ID, func(q *model.Troon, id int) int {
		return q.ID - id
	})
	a.ready = slices.Insert(a.ready, pos, t)
}

// ProcessWaitingArea boards the lowest-ID eligible troon onto the platform
// if it is free, then makes this tick's spawns eligible.
func (n *Network) ProcessWaitingArea(i int) {
	a := &n.areas[i-n.lo]
	if len(a.ready) > 0 && !n.PlatformOccupied(i) {
		t := a.ready[0]
		a.ready = a.ready[1:]
		n.addToPlatform(i, t)
	}

	for _, t := range a.arrivals {
		a.enqueue(t)
	}
	a.arrivals = a.arrivals[:0]
}

// Queued returns the number of troons in waiting area i.
func (n *Network) Queued(i int) int {
	a := &n.areas[i-n.lo]
	return len(a.ready) + len(a.arrivals)
}

// Troons appends every troon held by edges [lo, hi) to dst.
func (n *Network) Troons(dst []*model.Troon, lo, hi int) []*model.Troon {
	for k := lo - n.lo; k < hi-n.lo; k++ {
		dst = append(dst, n.areas[k].ready...)
		dst = append(dst, n.areas[k].arrivals...)
		if t := n.platforms[k].occupant; t != nil {
			dst = append(dst, t)
		}
		if t := n.links[k].occupant; t != nil {
			dst = append(dst, t)
		}
	}
	return dst
}

// Reset drops every troon and zeroes all counters.
func (n *Network) Reset() {
	for i := range n.links {
		n.links[i] = Link{}
		n.platforms[i].occupant = nil
		n.platforms[i].dwell = 0
		n.areas[i] = WaitingArea{}
	}
}
