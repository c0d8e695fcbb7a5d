package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/troon-simulator/core"
	"github.com/signalsfoundry/troon-simulator/internal/config"
	"github.com/signalsfoundry/troon-simulator/internal/logging"
	"github.com/signalsfoundry/troon-simulator/internal/observability"
	"github.com/signalsfoundry/troon-simulator/internal/partition"
	"github.com/signalsfoundry/troon-simulator/timectrl"
)

// Config is the resolved CLI configuration for one run.
type Config struct {
	InputPath    string
	JSON         bool
	Workers      int
	TickInterval time.Duration
	MetricsAddr  string
	Rules        core.Rules
}

func main() {
	env := config.Load()
	if path := os.Getenv("TROONS_ENV_FILE"); path != "" {
		var err error
		if env, err = config.LoadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", path, err)
			os.Exit(2)
		}
	}

	jsonInput := flag.Bool("json", false, "read the scenario as JSON instead of the text format")
	workers := flag.Int("workers", env.Workers, "number of partition workers; 1 runs the single-worker engine, 0 uses one per CPU")
	tickInterval := flag.Duration("tick-interval", env.TickInterval, "wall-clock time per tick; 0 runs ticks back to back")
	metricsAddr := flag.String("metrics-addr", env.MetricsAddr, "HTTP address for /metrics and /healthz; empty disables")
	dwellPadding := flag.Int("dwell-padding", env.DwellPadding, "dwell ticks added to station popularity")
	linkCooldown := flag.Int("link-cooldown", env.LinkCooldown, "empty ticks a link needs before accepting a troon")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <scenario file | ->\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := Config{
		InputPath:    flag.Arg(0),
		JSON:         *jsonInput,
		Workers:      config.ResolveWorkers(*workers),
		TickInterval: *tickInterval,
		MetricsAddr:  *metricsAddr,
		Rules:        core.Rules{DwellPadding: *dwellPadding, LinkCooldown: *linkCooldown},
	}

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, log = logging.WithRunLogger(ctx, log)

	tcfg := observability.TracingConfigFromEnv()
	tcfg.Run = observability.RunInfo{
		RunID:    logging.RunIDFromContext(ctx),
		Scenario: cfg.InputPath,
		Workers:  cfg.Workers,
	}
	shutdown, err := observability.InitTracing(ctx, tcfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	err = run(ctx, cfg, os.Stdout)
	observability.ShutdownWithTimeout(context.Background(), shutdown, log)
	if err != nil {
		log.Error(ctx, "run failed", logging.Err(err))
		os.Exit(1)
	}
}

// runner is satisfied by both engines.
type runner interface {
	Run(ctx context.Context, w io.Writer) error
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	log := logging.LoggerFromContext(ctx)
	if log == nil {
		log = logging.Noop()
	}

	sc, err := loadScenario(cfg.InputPath, cfg.JSON)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector, err := observability.NewSimCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}

	mode := timectrl.Accelerated
	if cfg.TickInterval > 0 {
		mode = timectrl.RealTime
	}
	clock := timectrl.NewTickController(cfg.TickInterval, mode)

	opts := []core.EngineOption{
		core.WithRules(cfg.Rules),
		core.WithLogger(log),
		core.WithMetricsRecorder(collector),
		core.WithClock(clock),
	}

	var eng runner
	if cfg.Workers <= 1 {
		eng, err = core.NewSimulationEngine(sc, opts...)
	} else {
		eng, err = partition.New(sc, cfg.Workers, opts...)
	}
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, newRouter(collector, clock), log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info(ctx, "running scenario",
		logging.String("input", cfg.InputPath),
		logging.Int("workers", cfg.Workers),
		logging.String("mode", mode.String()),
	)
	return eng.Run(ctx, out)
}

func loadScenario(path string, asJSON bool) (*core.Scenario, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open scenario %q: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	if asJSON || strings.HasSuffix(path, ".json") {
		return core.LoadScenarioJSON(r)
	}
	return core.ParseScenario(r)
}

type healthResponse struct {
	Status string `json:"status"`
	Tick   int    `json:"tick"`
	Total  int    `json:"total"`
}

func newRouter(collector *observability.SimCollector, clock timectrl.TickClock) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", collector.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "running", Tick: clock.Now(), Total: clock.Total()}
		if resp.Total > 0 && resp.Tick == resp.Total-1 {
			resp.Status = "done"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

func serveMetrics(addr string, handler http.Handler, log logging.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
