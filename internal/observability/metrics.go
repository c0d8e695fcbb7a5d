package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/signalsfoundry/troon-simulator/model"
)

// SimCollector bundles Prometheus metrics for a simulation run. It
// satisfies core.MetricsRecorder and partition.ExchangeRecorder.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram
	Spawned      *prometheus.CounterVec
	Live         *prometheus.GaugeVec

	Exchanged     prometheus.Counter
	ExchangeBytes prometheus.Counter
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "troons_ticks_total",
		Help: "Number of completed simulation ticks.",
	}), "troons_ticks_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "troons_tick_duration_seconds",
		Help:    "Wall-clock time spent computing one tick.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}), "troons_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	spawned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "troons_spawned_total",
		Help: "Troons spawned at line terminals, labeled by line.",
	}, []string{"line"})
	spawned, err = registerCounterVec(reg, spawned, "troons_spawned_total")
	if err != nil {
		return nil, err
	}

	live := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "troons_live",
		Help: "Troons currently in the network, labeled by the container they occupy.",
	}, []string{"stage"})
	live, err = registerGaugeVec(reg, live, "troons_live")
	if err != nil {
		return nil, err
	}

	exchanged, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "troons_exchanged_total",
		Help: "Troons handed between partition workers.",
	}), "troons_exchanged_total")
	if err != nil {
		return nil, err
	}
	exchangeBytes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "troons_exchange_bytes_total",
		Help: "Encoded bytes sent between partition workers, including empty batches.",
	}), "troons_exchange_bytes_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:      gatherer,
		Ticks:         ticks,
		TickDuration:  duration,
		Spawned:       spawned,
		Live:          live,
		Exchanged:     exchanged,
		ExchangeBytes: exchangeBytes,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick counts a completed tick and records how long it took.
func (c *SimCollector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDuration.Observe(d.Seconds())
}

// AddSpawned adds n troons spawned on line.
func (c *SimCollector) AddSpawned(line model.Line, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Spawned.WithLabelValues(line.String()).Add(float64(n))
}

// SetLive updates the per-stage occupancy gauges.
func (c *SimCollector) SetLive(waiting, platform, link int) {
	if c == nil {
		return
	}
	c.Live.WithLabelValues(model.StageWaitingArea.String()).Set(float64(waiting))
	c.Live.WithLabelValues(model.StagePlatform.String()).Set(float64(platform))
	c.Live.WithLabelValues(model.StageLink.String()).Set(float64(link))
}

// ObserveExchange records one tick of cross-worker traffic.
func (c *SimCollector) ObserveExchange(troons, bytes int) {
	if c == nil {
		return
	}
	c.Exchanged.Add(float64(troons))
	c.ExchangeBytes.Add(float64(bytes))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
