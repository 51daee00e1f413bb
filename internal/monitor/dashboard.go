package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aflr-dev/aflr/internal/types"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// sortKey selects which column the per-worker table is ordered by.
type sortKey int

const (
	sortByIndex sortKey = iota
	sortByExecRate
	sortByCrashes
	sortByLastFind
)

var sortKeys = []sortKey{sortByIndex, sortByExecRate, sortByCrashes, sortByLastFind}

func (k sortKey) label() string {
	switch k {
	case sortByExecRate:
		return "exec/s"
	case sortByCrashes:
		return "crashes"
	case sortByLastFind:
		return "last find"
	default:
		return "index"
	}
}

// Dashboard renders CampaignSnapshots to a four-pane tview layout: a
// campaign summary line, a sortable worker table, a detail pane for the
// selected worker, and an exec-rate sparkline. Arrow keys move the
// selection and the detail pane follows it, 's' cycles the sort key, 'q'
// quits. Enter has no binding of its own; focus stays on the worker table.
type Dashboard struct {
	app     *tview.Application
	summary *tview.TextView
	table   *tview.Table
	detail  *tview.TextView
	spark   *tview.TextView

	sort    sortKey
	current types.CampaignSnapshot
	quit    func()
}

// NewDashboard wires the panes together; quit is called when the operator
// presses 'q'.
func NewDashboard(quit func()) *Dashboard {
	d := &Dashboard{
		app:     tview.NewApplication(),
		summary: tview.NewTextView().SetDynamicColors(true),
		table:   tview.NewTable().SetBorders(false).SetSelectable(true, false),
		detail:  tview.NewTextView().SetDynamicColors(true),
		spark:   tview.NewTextView().SetDynamicColors(true),
		quit:    quit,
	}

	d.summary.SetBorder(true).SetTitle(" campaign ")
	d.table.SetBorder(true).SetTitle(" workers ")
	d.detail.SetBorder(true).SetTitle(" detail ")
	d.spark.SetBorder(true).SetTitle(" exec/s ")

	d.table.SetSelectionChangedFunc(func(row, col int) {
		d.renderDetail(row)
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.summary, 3, 0, false).
		AddItem(tview.NewFlex().
			AddItem(d.table, 0, 2, true).
			AddItem(d.detail, 0, 1, false), 0, 3, true).
		AddItem(d.spark, 5, 0, false)

	d.app.SetRoot(flex, true).SetFocus(d.table)

	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q':
			d.quit()
			d.app.Stop()
			return nil
		case 's':
			d.cycleSort()
			return nil
		}
		return event
	})

	return d
}

func (d *Dashboard) cycleSort() {
	for i, k := range sortKeys {
		if k == d.sort {
			d.sort = sortKeys[(i+1)%len(sortKeys)]
			break
		}
	}
	d.render(d.current)
}

// Run blocks until the application exits (via 'q' or Stop being called from
// the poll goroutine on shutdown).
func (d *Dashboard) Run() error {
	return d.app.Run()
}

// Stop requests the tview event loop to exit; safe to call from any
// goroutine, matching tview's documented concurrency model.
func (d *Dashboard) Stop() {
	d.app.Stop()
}

// Update schedules a re-render from snap. Must be called from any
// goroutine; tview.Application.QueueUpdateDraw handles the handoff to the
// UI goroutine.
func (d *Dashboard) Update(snap types.CampaignSnapshot) {
	d.app.QueueUpdateDraw(func() {
		d.current = snap
		d.render(snap)
	})
}

func (d *Dashboard) render(snap types.CampaignSnapshot) {
	fmt.Fprintf(d.summary, "\x1b[2J")
	d.summary.Clear()
	fmt.Fprintf(d.summary,
		"[yellow]elapsed[white] %s   [yellow]execs[white] %d   [yellow]exec/s[white] %.1f (min %.1f max %.1f)   [yellow]crashes[white] %d   [yellow]hangs[white] %d   [yellow]sort[white] %s",
		snap.Elapsed.Round(time.Second), snap.TotalExecs, snap.ExecPerSecTotal,
		snap.ExecPerSecMin, snap.ExecPerSecMax, snap.UniqueCrashes, snap.UniqueHangs, d.sort.label(),
	)

	workers := append([]types.WorkerStatusSnapshot(nil), snap.Workers...)
	sortWorkers(workers, d.sort)

	d.table.Clear()
	headers := []string{"worker", "state", "exec/s", "execs", "found", "crashes", "hangs", "stability", "last find"}
	for c, h := range headers {
		d.table.SetCell(0, c, tview.NewTableCell(h).SetSelectable(false).SetTextColor(tcell.ColorYellow))
	}
	for r, w := range workers {
		row := r + 1
		d.table.SetCell(row, 0, tview.NewTableCell(w.ID))
		d.table.SetCell(row, 1, tview.NewTableCell(stateLabel(w.State)).SetTextColor(stateColor(w.State)))
		d.table.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%.1f", w.ExecPerSecNow)))
		d.table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", w.ExecsDone)))
		d.table.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%d", w.Found)))
		d.table.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%d", w.Crashes)))
		d.table.SetCell(row, 6, tview.NewTableCell(fmt.Sprintf("%d", w.Hangs)))
		d.table.SetCell(row, 7, tview.NewTableCell(fmt.Sprintf("%.0f%%", w.Stability)))
		d.table.SetCell(row, 8, tview.NewTableCell(formatSince(w.LastFind)))
	}

	d.spark.Clear()
	fmt.Fprint(d.spark, sparkline(snap.ExecRateHistory))
}

func (d *Dashboard) renderDetail(row int) {
	workers := append([]types.WorkerStatusSnapshot(nil), d.current.Workers...)
	sortWorkers(workers, d.sort)

	d.detail.Clear()
	idx := row - 1
	if idx < 0 || idx >= len(workers) {
		return
	}
	w := workers[idx]
	fmt.Fprintf(d.detail,
		"[yellow]id[white] %s\n[yellow]state[white] %s\n[yellow]pid[white] %d\n[yellow]stage[white] %s\n[yellow]cycles[white] %d\n[yellow]map density[white] %.1f%%\n[yellow]favored[white] %d\n[yellow]imported[white] %d\n[yellow]last crash[white] %s\n",
		w.ID, w.State, w.PID, w.Stage, w.CyclesDone, w.MapDensity, w.Favored, w.Imported, formatSince(w.LastCrash),
	)
	if len(w.Unknown) > 0 {
		var unknown []string
		for k, isUnknown := range w.Unknown {
			if isUnknown {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		if len(unknown) > 0 {
			fmt.Fprintf(d.detail, "\n[red]unknown fields[white] %s\n", strings.Join(unknown, ", "))
		}
	}
}

func sortWorkers(w []types.WorkerStatusSnapshot, key sortKey) {
	switch key {
	case sortByExecRate:
		sort.Slice(w, func(i, j int) bool { return w[i].ExecPerSecNow > w[j].ExecPerSecNow })
	case sortByCrashes:
		sort.Slice(w, func(i, j int) bool { return w[i].Crashes > w[j].Crashes })
	case sortByLastFind:
		sort.Slice(w, func(i, j int) bool { return w[i].LastFind.After(w[j].LastFind) })
	default:
		sort.Slice(w, func(i, j int) bool { return w[i].ID < w[j].ID })
	}
}

func stateLabel(s types.WorkerState) string {
	return strings.ToUpper(string(s))
}

func stateColor(s types.WorkerState) tcell.Color {
	switch s {
	case types.StateRunning:
		return tcell.ColorGreen
	case types.StateStarting:
		return tcell.ColorBlue
	case types.StateStalled:
		return tcell.ColorYellow
	case types.StateDead:
		return tcell.ColorRed
	default:
		return tcell.ColorGray
	}
}

func formatSince(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Round(time.Second).String() + " ago"
}

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// sparkline renders vals as a single line of block characters scaled to the
// series' own max, the simplest possible terminal sparkline.
func sparkline(vals []float64) string {
	if len(vals) == 0 {
		return ""
	}
	max := vals[0]
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}
	var b strings.Builder
	for _, v := range vals {
		idx := int((v / max) * float64(len(sparkChars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}
