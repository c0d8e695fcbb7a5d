package partition

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/signalsfoundry/troon-simulator/core"
	"github.com/signalsfoundry/troon-simulator/internal/logging"
	"github.com/signalsfoundry/troon-simulator/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/signalsfoundry/troon-simulator/internal/partition"

// reporter is the worker that gathers snapshots and writes tick reports.
const reporter = 0

// ExchangeRecorder is implemented by metrics recorders that also track
// cross-worker traffic.
type ExchangeRecorder interface {
	ObserveExchange(troons, bytes int)
}

// ErrInvalidWorkers reports a non-positive worker count.
var ErrInvalidWorkers = errors.New("worker count must be positive")

// Engine runs a scenario across a fixed number of workers.
type Engine struct {
	scenario *core.Scenario
	topo     *core.Topology
	ranges   []Range
	size     int
	cfg      core.EngineConfig
}

// New assembles the topology for sc and assigns link shards to workers.
func New(sc *core.Scenario, workers int, opts ...core.EngineOption) (*Engine, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	topo, err := sc.Topology()
	if err != nil {
		return nil, err
	}
	return &Engine{
		scenario: sc,
		topo:     topo,
		ranges:   Ranges(len(topo.Links), workers),
		size:     ShardSize(len(topo.Links), workers),
		cfg:      core.NewEngineConfig(opts...),
	}, nil
}

// Ranges returns the link shard of every worker.
func (e *Engine) Ranges() []Range { return e.ranges }

// message carries one worker's outbound batch for one peer.
type message struct {
	from    int
	tick    int
	payload []byte
}

// snapshot carries one worker's rendered troons for a report tick.
type snapshot struct {
	from    int
	tick    int
	entries []core.ReportEntry
}

// tickResult is what a worker hands back to the coordinator after a tick.
type tickResult struct {
	spawned   [model.NumLines]int
	live      [3]int
	exchanged int
	bytes     int
}

type worker struct {
	id      int
	rng     Range
	size    int
	workers []*worker

	net     *core.Network
	spawner *core.Spawner
	names   []string

	scenario *core.Scenario
	barrier  *Barrier
	log      logging.Logger

	start    chan int
	inbox    chan message
	reports  chan snapshot
	done     chan<- tickResult
	out      *bufio.Writer
	outbox   [][]Transfer
	received []Transfer
	spawns   []core.Spawn
	scratch  []*model.Troon
}

// Run executes exactly scenario.Ticks ticks and writes report lines to w.
// Any worker failure cancels the others and is returned.
func (e *Engine) Run(ctx context.Context, w io.Writer) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "partition.Engine.Run", trace.WithAttributes(
		attribute.Int("troons.ticks", e.scenario.Ticks),
		attribute.Int("troons.links", len(e.topo.Links)),
		attribute.Int("troons.workers", len(e.ranges)),
	))
	defer span.End()

	log := e.cfg.Log
	log.Info(ctx, "partitioned simulation starting",
		logging.Int("links", len(e.topo.Links)),
		logging.Int("workers", len(e.ranges)),
		logging.Int("shard_size", e.size),
		logging.Int("ticks", e.scenario.Ticks),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(e.ranges)
	done := make(chan tickResult, n)
	out := bufio.NewWriter(w)
	barrier := NewBarrier(n)
	names := e.topo.Stations.Names()

	workers := make([]*worker, n)
	for i := range workers {
		workers[i] = &worker{
			id:       i,
			rng:      e.ranges[i],
			size:     e.size,
			workers:  workers,
			net:      core.NewNetworkRange(e.topo, e.cfg.Rules, e.ranges[i].Lo, e.ranges[i].Hi),
			spawner:  core.NewSpawner(e.topo, e.scenario.Caps()),
			names:    names,
			scenario: e.scenario,
			barrier:  barrier,
			log:      log.With(logging.Int("worker", i)),
			start:    make(chan int, 1),
			inbox:    make(chan message, n),
			reports:  make(chan snapshot, n),
			done:     done,
			outbox:   make([][]Transfer, n),
		}
	}
	workers[reporter].out = out

	g, gctx := errgroup.WithContext(ctx)
	for _, wk := range workers {
		wk := wk
		g.Go(func() error { return wk.loop(gctx) })
	}

	runErr := e.cfg.Clock.Run(gctx, e.scenario.Ticks, func(tick int) error {
		return e.coordinate(gctx, tick, workers, done)
	})
	for _, wk := range workers {
		close(wk.start)
	}
	if runErr != nil {
		cancel()
	}
	err := g.Wait()
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
	case runErr != nil:
		err = runErr
	}
	if err == nil {
		err = out.Flush()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "partitioned simulation failed", logging.Err(err))
		return err
	}
	log.Info(ctx, "partitioned simulation complete")
	return nil
}

// coordinate releases every worker into tick and gathers their results.
func (e *Engine) coordinate(ctx context.Context, tick int, workers []*worker, done <-chan tickResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	started := time.Now()
	for _, wk := range workers {
		select {
		case wk.start <- tick:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var total tickResult
	for range workers {
		select {
		case r := <-done:
			for l, c := range r.spawned {
				total.spawned[l] += c
			}
			for s, c := range r.live {
				total.live[s] += c
			}
			total.exchanged += r.exchanged
			total.bytes += r.bytes
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m := e.cfg.Metrics; m != nil {
		for _, line := range model.Lines {
			if c := total.spawned[line]; c > 0 {
				m.AddSpawned(line, c)
			}
		}
		m.SetLive(total.live[0], total.live[1], total.live[2])
		if xr, ok := m.(ExchangeRecorder); ok {
			xr.ObserveExchange(total.exchanged, total.bytes)
		}
		m.ObserveTick(time.Since(started))
	}
	return nil
}

func (w *worker) loop(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "partition.worker", trace.WithAttributes(
		attribute.Int("troons.worker", w.id),
		attribute.Int("troons.links_lo", w.rng.Lo),
		attribute.Int("troons.links_hi", w.rng.Hi),
	))
	defer span.End()

	w.log.Debug(ctx, "worker ready", logging.Int("lo", w.rng.Lo), logging.Int("hi", w.rng.Hi))
	for {
		var tick int
		select {
		case t, ok := <-w.start:
			if !ok {
				return nil
			}
			tick = t
		case <-ctx.Done():
			return ctx.Err()
		}

		res, err := w.step(ctx, tick)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("worker %d tick %d: %w", w.id, tick, err)
		}

		select {
		case w.done <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *worker) step(ctx context.Context, tick int) (tickResult, error) {
	var res tickResult
	n := w.net

	for i := w.rng.Lo; i < w.rng.Hi; i++ {
		t, next := n.ProcessLink(i)
		if t == nil {
			continue
		}
		if w.rng.Contains(next) {
			n.AddToWaitingArea(next, t)
			continue
		}
		dest := Owner(next, w.size)
		w.outbox[dest] = append(w.outbox[dest], Transfer{ID: t.ID, Line: t.Line, Link: next})
	}

	if err := w.barrier.Wait(ctx); err != nil {
		return res, err
	}

	sent, err := w.exchange(ctx, tick)
	if err != nil {
		return res, err
	}
	res.exchanged = len(w.received)
	res.bytes = sent

	for _, tr := range w.received {
		if !w.rng.Contains(tr.Link) {
			return res, fmt.Errorf("%w: troon %d sent for link %d outside [%d,%d)",
				ErrCorruptBatch, tr.ID, tr.Link, w.rng.Lo, w.rng.Hi)
		}
		n.AddToWaitingArea(tr.Link, &model.Troon{ID: tr.ID, Line: tr.Line})
	}

	for i := w.rng.Lo; i < w.rng.Hi; i++ {
		n.ProcessPushPlatform(i)
	}

	// Every worker replays the full spawn schedule so troon IDs match a
	// single-worker run; only the terminal's owner materialises the troon.
	w.spawns = w.spawner.Tick(w.spawns[:0])
	for _, sp := range w.spawns {
		if !w.rng.Contains(sp.Link) {
			continue
		}
		n.SpawnIntoWaitingArea(sp.Link, sp.Troon())
		res.spawned[sp.Line]++
	}

	for i := w.rng.Lo; i < w.rng.Hi; i++ {
		n.ProcessWaitingArea(i)
	}
	for i := w.rng.Lo; i < w.rng.Hi; i++ {
		n.ProcessWaitPlatform(i)
	}

	w.scratch = n.Troons(w.scratch[:0], w.rng.Lo, w.rng.Hi)
	res.live[0], res.live[1], res.live[2] = core.CountStages(w.scratch)

	if w.scenario.ShouldReport(tick) {
		if err := w.report(ctx, tick); err != nil {
			return res, err
		}
	}
	return res, nil
}

// exchange sends one batch to every peer, including empty ones, then waits
// for one batch from every peer. It returns the number of bytes sent.
func (w *worker) exchange(ctx context.Context, tick int) (int, error) {
	sent := 0
	for peer, dst := range w.workers {
		if peer == w.id {
			continue
		}
		payload := AppendBatch(nil, w.outbox[peer])
		sent += len(payload)
		w.outbox[peer] = w.outbox[peer][:0]

		select {
		case dst.inbox <- message{from: w.id, tick: tick, payload: payload}:
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}

	w.received = w.received[:0]
	for n := len(w.workers) - 1; n > 0; n-- {
		select {
		case msg := <-w.inbox:
			if msg.tick != tick {
				return sent, fmt.Errorf("%w: batch from worker %d is for tick %d, expected %d",
					ErrCorruptBatch, msg.from, msg.tick, tick)
			}
			var err error
			if w.received, err = DecodeBatch(w.received, msg.payload); err != nil {
				return sent, fmt.Errorf("batch from worker %d: %w", msg.from, err)
			}
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
	return sent, nil
}

// report sends this worker's snapshot to the reporter; the reporter gathers
// every snapshot, then writes the merged line.
func (w *worker) report(ctx context.Context, tick int) error {
	entries := core.ReportEntries(nil, w.scratch, w.names)

	if w.id != reporter {
		select {
		case w.workers[reporter].reports <- snapshot{from: w.id, tick: tick, entries: entries}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for n := len(w.workers) - 1; n > 0; n-- {
		select {
		case s := <-w.reports:
			if s.tick != tick {
				return fmt.Errorf("snapshot from worker %d is for tick %d, expected %d", s.from, s.tick, tick)
			}
			entries = append(entries, s.entries...)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if _, err := fmt.Fprintln(w.out, core.FormatTick(tick, entries)); err != nil {
		return fmt.Errorf("write report for tick %d: %w", tick, err)
	}
	return nil
}
