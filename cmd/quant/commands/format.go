package commands

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/s2_factors"
	"github.com/wonny/factorlab/internal/s3_join"
	"github.com/wonny/factorlab/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// printHeader prints a formatted command header
func printHeader(title string, lines ...string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	fmt.Println("───────────────────────────────────────────────────────────")
	for _, l := range lines {
		fmt.Printf("  %s\n", l)
	}
	fmt.Println("───────────────────────────────────────────────────────────")
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

// renderFactorSummary prints one line per factor with coverage of the last date
func renderFactorSummary(set *s2_factors.FactorSet) {
	t := newTable()
	t.AppendHeader(table.Row{"Factor", "Dates", "Coverage", "Last Date", "Last Coverage", "Last Mean"})
	for _, name := range set.Names {
		p := set.Panels[name]
		if p.Len() == 0 {
			t.AppendRow(table.Row{name, 0, "-", "-", "-", "-"})
			continue
		}
		last := p.Len() - 1
		row := p.Row(last)
		mean, n := 0.0, 0
		for _, v := range row {
			if !math.IsNaN(v) {
				mean += v
				n++
			}
		}
		meanText := "-"
		if n > 0 {
			meanText = fmt.Sprintf("%.4f", mean/float64(n))
		}
		t.AppendRow(table.Row{
			name,
			p.Len(),
			fmt.Sprintf("%.1f%%", p.Coverage()*100),
			p.Dates[last].Format("2006-01-02"),
			fmt.Sprintf("%d/%d", n, p.Width()),
			meanText,
		})
	}
	t.Render()
}

// renderPanelTail prints the last date of a panel, top stocks first
func renderPanelTail(name string, p *contracts.Panel, limit int) {
	if p.Len() == 0 {
		fmt.Printf("%s: no data\n", name)
		return
	}
	last := p.Len() - 1

	type entry struct {
		code  string
		value float64
	}
	var entries []entry
	for s, code := range p.Stocks {
		if v := p.At(last, s); !math.IsNaN(v) {
			entries = append(entries, entry{code, v})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].value > entries[j].value })
	if len(entries) > limit {
		entries = entries[:limit]
	}

	t := newTable()
	t.SetTitle(fmt.Sprintf("%s @ %s", name, p.Dates[last].Format("2006-01-02")))
	t.AppendHeader(table.Row{"#", "Stock", "Value"})
	for i, e := range entries {
		t.AppendRow(table.Row{i + 1, e.code, fmt.Sprintf("%.6f", e.value)})
	}
	t.Render()
}

// renderJoinedPreview prints the first rows of an evaluation table
func renderJoinedPreview(name string, j *s3_join.JoinedTable, limit int) {
	header := table.Row{"Date", "Stock", "Industry", "Z"}
	for _, k := range j.Intervals {
		header = append(header, s3_join.ReturnColumn(k))
	}

	t := newTable()
	t.SetTitle(fmt.Sprintf("%s (%d rows)", name, j.Len()))
	t.AppendHeader(header)
	for i, r := range j.Rows {
		if i == limit {
			break
		}
		row := table.Row{r.Date.Format("2006-01-02"), r.Stock, orDash(r.Industry), fmt.Sprintf("%.3f", r.Factor)}
		for _, v := range r.Returns {
			row = append(row, formatReturn(v))
		}
		t.AppendRow(row)
	}
	t.Render()
}

// renderJobStats prints scheduler statistics
func renderJobStats(stats map[string]scheduler.JobStats) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable()
	t.AppendHeader(table.Row{"Job", "Schedule", "Runs", "Success", "Failures", "Last Run"})
	for _, name := range names {
		st := stats[name]
		lastRun := "-"
		if st.LastRun != nil {
			lastRun = st.LastRun.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{
			name, st.Schedule, st.TotalRuns,
			fmt.Sprintf("%d (%.1f%%)", st.SuccessCount, st.SuccessRate*100),
			st.FailureCount, lastRun,
		})
	}
	t.Render()
}

func formatReturn(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", v*100)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
