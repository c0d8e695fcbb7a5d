package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/troon-simulator/core"
	"github.com/signalsfoundry/troon-simulator/internal/observability"
	"github.com/signalsfoundry/troon-simulator/timectrl"
)

const sampleScenario = `4
a0 a1 a2 a3
1 1 1 1
0 1 1 1
1 0 1 1
1 1 0 1
1 1 1 0
a0 a1 a2 a3
a0 a1
a2 a3
1
1 0 0
1
`

func writeScenario(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestRunWritesTickReport(t *testing.T) {
	path := writeScenario(t, "input.txt", sampleScenario)

	for _, workers := range []int{1, 3} {
		var out bytes.Buffer
		cfg := Config{InputPath: path, Workers: workers, Rules: core.DefaultRules()}
		if err := run(context.Background(), cfg, &out); err != nil {
			t.Fatalf("workers=%d run: %v", workers, err)
		}
		if got, want := out.String(), "0: g0-a0# \n"; got != want {
			t.Fatalf("workers=%d output = %q, want %q", workers, got, want)
		}
	}
}

func TestRunReadsJSONByExtension(t *testing.T) {
	sc := core.Scenario{
		StationNames: []string{"a0", "a1"},
		Popularities: []int{1, 1},
		Distances:    [][]int{{0, 1}, {1, 0}},
		GreenLine:    []string{"a0", "a1"},
		YellowLine:   []string{"a0", "a1"},
		BlueLine:     []string{"a1", "a0"},
		Ticks:        2,
		BlueTroons:   1,
		LinesToPrint: 1,
	}
	body, err := json.Marshal(sc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := writeScenario(t, "scenario.json", string(body))

	var out bytes.Buffer
	cfg := Config{InputPath: path, Workers: 1, Rules: core.DefaultRules()}
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got, want := out.String(), "1: b0-a1% \n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestRunRejectsBadScenario(t *testing.T) {
	path := writeScenario(t, "bad.txt", strings.Replace(sampleScenario, "a2 a3\n1\n", "a2 zz\n1\n", 1))
	cfg := Config{InputPath: path, Workers: 1, Rules: core.DefaultRules()}
	if err := run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("run accepted a line with an unknown station")
	}

	cfg.InputPath = filepath.Join(t.TempDir(), "missing.txt")
	if err := run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("run accepted a missing input file")
	}
}

func TestRouterServesHealthAndMetrics(t *testing.T) {
	collector, err := observability.NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	clock := timectrl.NewTickController(0, timectrl.Accelerated)
	if err := clock.Run(context.Background(), 3, func(int) error {
		collector.AddSpawned(0, 1)
		return nil
	}); err != nil {
		t.Fatalf("clock.Run: %v", err)
	}

	router := newRouter(collector, clock)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d", rr.Code)
	}
	var health healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&health); err != nil {
		t.Fatalf("decode /healthz: %v", err)
	}
	if health != (healthResponse{Status: "done", Tick: 2, Total: 3}) {
		t.Fatalf("/healthz = %+v", health)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, `troons_spawned_total{line="green"} 3`) {
		t.Fatalf("/metrics missing spawn counter:\n%s", body)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /metrics status = %d, want 405", rr.Code)
	}
}
