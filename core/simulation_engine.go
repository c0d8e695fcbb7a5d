package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/signalsfoundry/troon-simulator/internal/logging"
	"github.com/signalsfoundry/troon-simulator/model"
	"github.com/signalsfoundry/troon-simulator/timectrl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/troon-simulator/core"

// MetricsRecorder receives per-tick simulation measurements.
type MetricsRecorder interface {
	ObserveTick(d time.Duration)
	AddSpawned(line model.Line, n int)
	SetLive(waiting, platform, link int)
}

// EngineOption customises engine construction.
type EngineOption func(*EngineConfig)

// EngineConfig is the resolved set of engine options, shared by the
// single-worker and partitioned engines.
type EngineConfig struct {
	Rules   Rules
	Log     logging.Logger
	Metrics MetricsRecorder
	Clock   *timectrl.TickController
}

// WithRules overrides the congestion constants.
func WithRules(r Rules) EngineOption {
	return func(c *EngineConfig) { c.Rules = r }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(c *EngineConfig) { c.Log = l }
}

// WithMetricsRecorder attaches a recorder for tick metrics.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(c *EngineConfig) { c.Metrics = m }
}

// WithClock drives the run from the given tick controller, e.g. to pace
// ticks in real time or expose progress.
func WithClock(tc *timectrl.TickController) EngineOption {
	return func(c *EngineConfig) { c.Clock = tc }
}

// NewEngineConfig applies opts over the defaults.
func NewEngineConfig(opts ...EngineOption) EngineConfig {
	c := EngineConfig{Rules: DefaultRules()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Log == nil {
		c.Log = logging.Noop()
	}
	if c.Clock == nil {
		c.Clock = timectrl.NewTickController(0, timectrl.Accelerated)
	}
	return c
}

// SimulationEngine runs a scenario on a single worker.
type SimulationEngine struct {
	scenario *Scenario
	topo     *Topology
	net      *Network
	spawner  *Spawner
	names    []string

	troons  []*model.Troon
	spawns  []Spawn
	entries []ReportEntry

	cfg EngineConfig
}

// NewSimulationEngine assembles the topology for sc. Configuration errors
// are returned before any tick runs.
func NewSimulationEngine(sc *Scenario, opts ...EngineOption) (*SimulationEngine, error) {
	topo, err := sc.Topology()
	if err != nil {
		return nil, err
	}
	cfg := NewEngineConfig(opts...)
	return &SimulationEngine{
		scenario: sc,
		topo:     topo,
		net:      NewNetwork(topo, cfg.Rules),
		spawner:  NewSpawner(topo, sc.Caps()),
		names:    topo.Stations.Names(),
		cfg:      cfg,
	}, nil
}

// RegisterTickListener registers fn to run after every tick, before the
// network is torn down at the end of the run.
func (se *SimulationEngine) RegisterTickListener(fn func(int)) {
	se.cfg.Clock.AddListener(fn)
}

// Network exposes the live per-edge state.
func (se *SimulationEngine) Network() *Network { return se.net }

// Topology returns the assembled link graph.
func (se *SimulationEngine) Topology() *Topology { return se.topo }

// Troons returns every troon spawned so far.
func (se *SimulationEngine) Troons() []*model.Troon { return se.troons }

// Run executes exactly scenario.Ticks ticks, writing report lines to w,
// then tears down all dynamic state.
func (se *SimulationEngine) Run(ctx context.Context, w io.Writer) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SimulationEngine.Run", trace.WithAttributes(
		attribute.Int("troons.ticks", se.scenario.Ticks),
		attribute.Int("troons.links", len(se.topo.Links)),
	))
	defer span.End()

	log := se.cfg.Log
	log.Info(ctx, "simulation starting",
		logging.Int("stations", se.topo.Stations.Len()),
		logging.Int("links", len(se.topo.Links)),
		logging.Int("ticks", se.scenario.Ticks),
	)

	out := bufio.NewWriter(w)
	err := se.cfg.Clock.Run(ctx, se.scenario.Ticks, func(tick int) error {
		return se.Step(tick, out)
	})
	if err == nil {
		err = out.Flush()
	}
	total := se.spawner.Total()
	se.teardown()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "simulation failed", logging.Err(err))
		return err
	}
	log.Info(ctx, "simulation complete", logging.Int("troons", total))
	return nil
}

// Step runs a single tick in the fixed phase order.
func (se *SimulationEngine) Step(tick int, w io.Writer) error {
	start := time.Now()
	n := se.net

	for i := 0; i < n.Len(); i++ {
		if t, next := n.ProcessLink(i); t != nil {
			n.AddToWaitingArea(next, t)
		}
	}

	for i := 0; i < n.Len(); i++ {
		n.ProcessPushPlatform(i)
	}

	se.spawns = se.spawner.Tick(se.spawns[:0])
	for _, sp := range se.spawns {
		t := sp.Troon()
		se.troons = append(se.troons, t)
		n.SpawnIntoWaitingArea(sp.Link, t)
		if m := se.cfg.Metrics; m != nil {
			m.AddSpawned(sp.Line, 1)
		}
	}

	for i := 0; i < n.Len(); i++ {
		n.ProcessWaitingArea(i)
	}

	for i := 0; i < n.Len(); i++ {
		n.ProcessWaitPlatform(i)
	}

	if se.scenario.ShouldReport(tick) {
		se.entries = ReportEntries(se.entries[:0], se.troons, se.names)
		if _, err := fmt.Fprintln(w, FormatTick(tick, se.entries)); err != nil {
			return fmt.Errorf("write report for tick %d: %w", tick, err)
		}
	}

	if m := se.cfg.Metrics; m != nil {
		m.SetLive(CountStages(se.troons))
		m.ObserveTick(time.Since(start))
	}
	return nil
}

func (se *SimulationEngine) teardown() {
	se.net.Reset()
	se.troons = nil
	se.spawns = nil
	se.entries = nil
}
