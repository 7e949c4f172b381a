package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

const rule = "------------------------------"

// Options tune the printer.
type Options struct {
	// NoColor disables all styling.
	NoColor bool

	// ShowIndeterminate lists each unscored run with its reason instead of
	// only the count.
	ShowIndeterminate bool
}

// Printer renders evaluations to a writer.
type Printer struct {
	w    io.Writer
	opts Options

	title   lipgloss.Style
	faint   lipgloss.Style
	alert   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	value   lipgloss.Style
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	p := &Printer{w: w, opts: opts}
	if opts.NoColor {
		plain := lipgloss.NewStyle()
		p.title, p.faint, p.alert, p.ok, p.warn, p.value = plain, plain, plain, plain, plain, plain
		return p
	}
	r := lipgloss.NewRenderer(w)
	p.title = r.NewStyle().Bold(true)
	p.faint = r.NewStyle().Faint(true)
	p.alert = r.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	p.ok = r.NewStyle().Foreground(lipgloss.Color("46"))
	p.warn = r.NewStyle().Foreground(lipgloss.Color("214"))
	p.value = r.NewStyle().Foreground(lipgloss.Color("86"))
	return p
}

// Print writes the report for a completed evaluation.
func (p *Printer) Print(ev *compute.Evaluation) error {
	var b strings.Builder

	p.header(&b, ev)

	outliers := ev.Report.Outliers()
	for _, f := range outliers {
		p.outlier(&b, f, ev.WindowDays)
	}
	if len(outliers) == 0 {
		fmt.Fprintln(&b, p.ok.Render("✅ All nodes performed within normal parameters today."))
	}

	s := ev.Report.Summary
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, p.faint.Render(fmt.Sprintf("Runs: %d  Normal: %d  Outliers: %d  (threshold %.1f)",
		s.Scored, s.Normal, s.Outliers, ev.Threshold)))
	if s.Indeterminate > 0 {
		fmt.Fprintln(&b, p.warn.Render(fmt.Sprintf("Indeterminate: %d (no usable baseline)", s.Indeterminate)))
		if p.opts.ShowIndeterminate {
			for _, g := range ev.Report.Groups {
				for _, f := range g.Indeterminate {
					fmt.Fprintf(&b, "   %s (%s, %d threads): %v\n",
						f.Measurement.NodeID, f.Key.Group, f.Key.Concurrency, f.Reason)
				}
			}
		}
	}
	p.parseFailures(&b, ev.ParseFailures)

	_, err := io.WriteString(p.w, b.String())
	return err
}

// PrintNothingToEvaluate explains an evaluation that stopped early. ev may
// be nil.
func (p *Printer) PrintNothingToEvaluate(ev *compute.Evaluation, cause error) error {
	var b strings.Builder

	var we *compute.EmptyWindowError
	switch {
	case errors.Is(cause, compute.ErrEmptyDataset) || ev == nil:
		fmt.Fprintln(&b, p.warn.Render("No data found."))
	case errors.As(cause, &we) && we.Scope == compute.ScopeCurrent:
		fmt.Fprintf(&b, "%s\n\n", p.title.Render("--- CLUSTER HEALTH REPORT: "+ev.Day.Format(time.DateOnly)+" ---"))
		fmt.Fprintln(&b, p.warn.Render("No data found for date: "+ev.Day.Format(time.DateOnly)))
		fmt.Fprintln(&b, "Did the tests run today?")
	case errors.As(cause, &we):
		fmt.Fprintln(&b, p.warn.Render(fmt.Sprintf("No data found in the last %d days (%s).",
			ev.WindowDays, we.Window)))
	default:
		fmt.Fprintln(&b, p.warn.Render(fmt.Sprintf("Nothing to evaluate: %v", cause)))
	}
	if ev != nil {
		p.parseFailures(&b, ev.ParseFailures)
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Printer) header(b *strings.Builder, ev *compute.Evaluation) {
	day := ev.Day.Format(time.DateOnly)
	fmt.Fprintf(b, "\n%s\n", p.title.Render("--- CLUSTER HEALTH REPORT: "+day+" ---"))

	from := ev.History.Start
	if !ev.HistoryEarliest.IsZero() {
		from = ev.HistoryEarliest
	}
	fmt.Fprintf(b, "%s\n\n", p.faint.Render(fmt.Sprintf("(Baseline calculated using data from %s to %s, %d day window)",
		from.Format(time.DateOnly), day, ev.WindowDays)))
}

func (p *Printer) outlier(b *strings.Builder, f types.Finding, windowDays int) {
	m := f.Measurement
	fmt.Fprintln(b, p.alert.Render(fmt.Sprintf("🔴 SLOW NODE: %s (%s, %d threads)", m.NodeID, f.Key.Group, f.Key.Concurrency)))
	fmt.Fprintf(b, "   Time: %s\n", p.value.Render(fmt.Sprintf("%.2fs", m.Elapsed)))
	if f.Baseline != nil {
		fmt.Fprintf(b, "   Baseline (%dd): %.2fs ± %.2fs\n", windowDays, f.Baseline.Mean, f.Baseline.StdDev)
	}
	fmt.Fprintf(b, "   Deviation: +%.1fx standard deviations\n", f.ZScore)
	fmt.Fprintln(b, rule)
}

func (p *Printer) parseFailures(b *strings.Builder, n int) {
	if n == 0 {
		return
	}
	fmt.Fprintln(b, p.warn.Render(fmt.Sprintf("Parse failures: %d row(s) skipped", n)))
}
