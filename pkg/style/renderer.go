package style

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/cellar/pkg/core"
	"github.com/arthur-debert/cellar/pkg/deps"
	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/scheduler"
	"github.com/arthur-debert/cellar/pkg/service"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/pterm/pterm"
)

// outputTail is how many lines of tool output an error shows.
const outputTail = 15

// Renderer turns engine results into text for one output format.
type Renderer struct {
	format Format
	width  int
}

// NewRenderer creates a renderer for a resolved format.
func NewRenderer(f Format, width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	return &Renderer{format: f, width: width}
}

func (r *Renderer) style(s string, st lipgloss.Style) string {
	if r.format == FormatText {
		return s
	}
	return st.Render(s)
}

func (r *Renderer) indicator(rich, plain string) string {
	if r.format == FormatText {
		return plain
	}
	return rich
}

func (r *Renderer) ident(name, version string) string {
	return r.style(name, FormulaStyle) + " " + r.style(version, VersionStyle)
}

// RenderReport renders the outcome of an install, then the caveats of the
// formulas it installed.
func (r *Renderer) RenderReport(report *core.Report, prefix paths.Prefix) string {
	var b strings.Builder
	for _, s := range report.Steps {
		b.WriteString(r.renderStep(s))
		b.WriteString("\n")
	}

	for _, s := range report.Steps {
		if s.Caveats == "" || s.Outcome != scheduler.Succeeded || s.AlreadyInstalled {
			continue
		}
		vars := prefix.Keg(s.Name, s.Version).Vars()
		b.WriteString("\n" + r.style("==> Caveats for "+s.Name, TitleStyle) + "\n")
		b.WriteString(Markdown(service.Expand(s.Caveats, vars), r.width, r.format))
	}

	installed := len(report.Installed())
	failed := 0
	skipped := 0
	for _, s := range report.Steps {
		switch s.Outcome {
		case scheduler.Failed, scheduler.Canceled:
			failed++
		case scheduler.Skipped:
			skipped++
		}
	}
	summary := fmt.Sprintf("%d installed, %d failed, %d skipped", installed, failed, skipped)
	b.WriteString("\n" + r.style(summary, MutedStyle))
	return b.String()
}

func (r *Renderer) renderStep(s *core.StepReport) string {
	id := r.ident(s.Name, s.Version)
	switch {
	case s.Outcome == scheduler.Succeeded && s.AlreadyInstalled:
		return fmt.Sprintf("%s %s already installed", r.indicator(InfoIndicator, "-"), id)
	case s.Outcome == scheduler.Succeeded:
		line := fmt.Sprintf("%s %s installed in %s", r.indicator(SuccessIndicator, "+"), id, s.Duration.Round(100*time.Millisecond))
		if s.Pruned {
			line += r.style(" (build dependency, removed)", MutedStyle)
		}
		return line
	case s.Outcome == scheduler.Skipped:
		return fmt.Sprintf("%s %s skipped, %s failed", r.indicator(PendingIndicator, "o"), id, s.BlockedBy)
	default:
		msg := "failed"
		if s.Outcome == scheduler.Canceled {
			msg = "canceled"
		}
		if phase := errors.GetDetailString(s.Err, errors.DetailPhase); phase != "" {
			msg += " while " + strings.ToLower(phase)
		}
		return fmt.Sprintf("%s %s %s", r.indicator(ErrorIndicator, "x"), id, r.style(msg, ErrorStyle))
	}
}

// RenderPlan lists the formulas of a plan in install order.
func (r *Renderer) RenderPlan(plan *deps.Plan, installed []string) string {
	have := make(map[string]bool, len(installed))
	for _, n := range installed {
		have[n] = true
	}
	var b strings.Builder
	for _, s := range plan.Steps {
		line := r.ident(s.Name(), s.Formula.Version)
		if s.BuildOnly {
			line += r.style(" (build)", MutedStyle)
		}
		if have[s.Name()] {
			line += r.style(" [installed]", SuccessStyle)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderReceipts renders installed formulas as a table.
func (r *Renderer) RenderReceipts(receipts []*types.InstallManifest) string {
	if len(receipts) == 0 {
		return r.style("No formulas installed", MutedStyle)
	}
	data := pterm.TableData{{"Formula", "Version", "Options", "Installed", "Files"}}
	for _, m := range receipts {
		name := m.Formula
		if m.BuildOnly {
			name += " (build)"
		}
		when := ""
		if !m.CompletedAt.IsZero() {
			when = humanize.Time(m.CompletedAt)
		}
		data = append(data, []string{
			name,
			m.Version,
			strings.Join(m.Options, ", "),
			when,
			humanize.Comma(int64(len(m.Entries))),
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Sprint(data)
	}
	return strings.TrimRight(out, "\n")
}

// RenderFormula describes a formula and, when receipt is non-nil, its
// installation at prefix.
func (r *Renderer) RenderFormula(f *types.Formula, prefix paths.Prefix, receipt *types.InstallManifest) string {
	var b strings.Builder
	b.WriteString(r.ident(f.Name, f.Version) + "\n")
	if f.Homepage != "" {
		b.WriteString(r.style(f.Homepage, PathStyle) + "\n")
	}
	b.WriteString(fmt.Sprintf("Source: %s\n", f.Source.URL))
	if f.Source.Strategy != "" {
		b.WriteString(fmt.Sprintf("Strategy: %s\n", f.Source.Strategy))
	}
	if f.Head != "" {
		b.WriteString(fmt.Sprintf("Head: %s\n", f.Head))
	}

	if receipt != nil {
		b.WriteString(fmt.Sprintf("Installed: %s (%s, %d files)\n",
			r.style(receipt.Keg, PathStyle), receipt.State, len(receipt.Entries)))
	} else {
		b.WriteString(r.style("Not installed", MutedStyle) + "\n")
	}

	if len(f.Dependencies) > 0 {
		b.WriteString("\n" + r.style("Dependencies", TitleStyle) + "\n")
		for _, d := range f.Dependencies {
			b.WriteString(Indent(d.String(), 1) + "\n")
		}
	}
	if len(f.Conflicts) > 0 {
		b.WriteString("\n" + r.style("Conflicts", TitleStyle) + "\n")
		for _, c := range f.Conflicts {
			line := c.Name
			if c.Reason != "" {
				line += r.style(": "+c.Reason, MutedStyle)
			}
			b.WriteString(Indent(line, 1) + "\n")
		}
	}
	if len(f.Options) > 0 {
		b.WriteString("\n" + r.style("Options", TitleStyle) + "\n")
		for _, o := range f.Options {
			line := r.style("--"+o.Name, OptionStyle)
			if o.Default {
				line += r.style(" (default)", MutedStyle)
			}
			b.WriteString(Indent(line, 1) + "\n")
			if o.Description != "" {
				b.WriteString(Indent(o.Description, 2) + "\n")
			}
		}
		for _, g := range f.OptionGroups {
			b.WriteString(Indent(r.style(fmt.Sprintf("one of: %s", strings.Join(g.Members, ", ")), MutedStyle), 1) + "\n")
		}
	}
	if f.Service != nil {
		b.WriteString("\n" + r.style("Service", TitleStyle) + "\n")
		b.WriteString(Indent(service.Label(f.Name, *f.Service), 1) + "\n")
		if f.Service.ManualCommand != "" {
			b.WriteString(Indent("start manually with: "+r.style(f.Service.ManualCommand, CodeStyle), 1) + "\n")
		}
	}
	caveats := f.Caveats
	if receipt != nil && receipt.Caveats != "" {
		caveats = receipt.Caveats
	}
	if caveats != "" {
		vars := prefix.Keg(f.Name, f.Version).Vars()
		b.WriteString("\n" + r.style("Caveats", TitleStyle) + "\n")
		b.WriteString(Markdown(service.Expand(caveats, vars), r.width, r.format))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderError renders err with its details. Combined errors are rendered
// one after the other.
func (r *Renderer) RenderError(err error) string {
	if err == nil {
		return ""
	}
	var merr *multierror.Error
	if stderrors.As(err, &merr) {
		parts := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			parts = append(parts, r.RenderError(e))
		}
		return strings.Join(parts, "\n")
	}

	var b strings.Builder
	b.WriteString(r.indicator(ErrorIndicator, "Error:"))
	b.WriteString(" " + r.style(errors.Describe(err), ErrorStyle))
	if out := errors.GetDetailString(err, errors.DetailOutput); out != "" {
		b.WriteString("\n" + r.style(tail(out, outputTail), MutedStyle))
	}
	return b.String()
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
