package core

import (
	"testing"

	"github.com/signalsfoundry/troon-simulator/model"
)

func TestFormatTickGroupsAndSorts(t *testing.T) {
	names := []string{"a0", "a1", "a2"}
	troons := []*model.Troon{
		{ID: 10, Line: model.LineGreen, Stage: model.StageLink, Source: 0, Destination: 1},
		{ID: 2, Line: model.LineGreen, Stage: model.StageWaitingArea, Source: 2},
		{ID: 3, Line: model.LineYellow, Stage: model.StagePlatform, Source: 1},
		{ID: 7, Line: model.LineBlue, Stage: model.StageWaitingArea, Source: 0},
		{ID: 11, Line: model.LineBlue, Stage: model.StagePlatform, Source: 2},
	}

	got := FormatTick(12, ReportEntries(nil, troons, names))
	want := "12: b11-a2% b7-a0# g10-a0->a1 g2-a2# y3-a1% "
	if got != want {
		t.Fatalf("FormatTick = %q, want %q", got, want)
	}
}

func TestFormatTickEmpty(t *testing.T) {
	if got := FormatTick(0, nil); got != "0: " {
		t.Fatalf("FormatTick = %q", got)
	}
}

func TestShouldReportWindow(t *testing.T) {
	sc := &Scenario{Ticks: 10, LinesToPrint: 3}
	for tick := 0; tick < 10; tick++ {
		if got, want := sc.ShouldReport(tick), tick >= 7; got != want {
			t.Fatalf("ShouldReport(%d) = %v, want %v", tick, got, want)
		}
	}
}

func TestCountStages(t *testing.T) {
	troons := []*model.Troon{
		{Stage: model.StageLink}, {Stage: model.StageWaitingArea},
		{Stage: model.StageLink}, {Stage: model.StagePlatform},
	}
	w, p, l := CountStages(troons)
	if w != 1 || p != 1 || l != 2 {
		t.Fatalf("CountStages = %d %d %d", w, p, l)
	}
}
