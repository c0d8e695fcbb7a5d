package core

import (
	"sort"
	"strconv"
	"strings"

	"github.com/signalsfoundry/troon-simulator/model"
)

// ReportEntry is one rendered troon in a tick report.
type ReportEntry struct {
	Line  model.Line
	Token string
}

var reportRank = func() [model.NumLines]int {
	var r [model.NumLines]int
	for i, l := range model.ReportOrder {
		r[l] = i
	}
	return r
}()

// ReportEntries renders troons and appends them to dst.
func ReportEntries(dst []ReportEntry, troons []*model.Troon, names []string) []ReportEntry {
	for _, t := range troons {
		dst = append(dst, ReportEntry{Line: t.Line, Token: t.Describe(names)})
	}
	return dst
}

// SortReport orders entries blue, green, yellow and lexicographically by
// token within a line.
func SortReport(entries []ReportEntry) {
	sort.Slice(entries, func(i, j int) bool {
		ri, rj := reportRank[entries[i].Line], reportRank[entries[j].Line]
		if ri != rj {
			return ri < rj
		}
		return entries[i].Token < entries[j].Token
	})
}

// FormatTick sorts entries and renders the report line for tick, without
// the trailing newline.
func FormatTick(tick int, entries []ReportEntry) string {
	SortReport(entries)

	var b strings.Builder
	b.WriteString(strconv.Itoa(tick))
	b.WriteString(": ")
	for _, e := range entries {
		b.WriteString(e.Token)
	}
	return b.String()
}

// CountStages tallies troons by the container they occupy.
func CountStages(troons []*model.Troon) (waiting, platform, link int) {
	for _, t := range troons {
		switch t.Stage {
		case model.StageWaitingArea:
			waiting++
		case model.StagePlatform:
			platform++
		case model.StageLink:
			link++
		}
	}
	return waiting, platform, link
}
