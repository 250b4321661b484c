// Package cliapp wires the sync engine to a cobra-based CLI: flag
// parsing, styled report rendering, and interactive dedup disposition.
package cliapp

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"

	"github.com/BoweyLou/obssync/internal/syncengine"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#D3C6AA")).
			Background(lipgloss.Color("#2D353B")).
			PaddingLeft(2).
			Width(60)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#A7C080"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E69875")).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A7C080")).
			PaddingTop(1)
)

// BuildReportMarkdown renders a syncengine.Report as a Markdown
// document: a summary counts table, a per-operation section per
// category, and a dedup/diagnostics section.
func BuildReportMarkdown(report *syncengine.Report) string {
	var b strings.Builder
	mode := "apply"
	if report.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(&b, "# Sync report: %s (%s)\n\n", report.VaultID, mode)

	counts := report.Counts()
	b.WriteString("| category | count |\n|---|---|\n")
	for _, key := range []string{"updates", "creates_obs_rem", "creates_rem_obs", "deletes", "dedup_clusters", "failures"} {
		fmt.Fprintf(&b, "| %s | %d |\n", key, counts[key])
	}
	b.WriteString("\n")

	writeOpSection(&b, "Updates", report.Updates)
	writeOpSection(&b, "Creates", report.Creates)
	writeOpSection(&b, "Deletes", report.Deletes)

	if len(report.DedupClusters) > 0 {
		b.WriteString("## Duplicate clusters\n\n")
		for _, c := range report.DedupClusters {
			fmt.Fprintf(&b, "- cluster %q: %d members\n", c.ID, len(c.Members))
		}
		b.WriteString("\n")
	}

	if len(report.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		for _, d := range report.Diagnostics {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	if len(report.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, f := range report.Failures {
			fmt.Fprintf(&b, "- `%s` (%s): %s\n", f.ID, f.Kind.String(), f.Reason)
		}
	}

	return b.String()
}

func writeOpSection(b *strings.Builder, title string, ops []syncengine.Operation) {
	if len(ops) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, op := range ops {
		fmt.Fprintf(b, "- `%s` %s\n", op.Kind.String(), opSummary(op))
	}
	b.WriteString("\n")
}

func opSummary(op syncengine.Operation) string {
	switch {
	case op.ObsTask != nil && op.RemTask != nil:
		return fmt.Sprintf("%s <-> %s", op.ObsTask.Description, op.RemTask.Title)
	case op.ObsTask != nil:
		return op.ObsTask.Description
	case op.RemTask != nil:
		return op.RemTask.Title
	default:
		return ""
	}
}

// RenderHTML converts the report's Markdown body to HTML via goldmark,
// used for the CLI's optional --html archival output.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("cliapp: render html: %w", err)
	}
	return buf.String(), nil
}

// RenderANSI renders the report's Markdown body for terminal display
// via glamour, falling back to the raw Markdown if glamour can't build
// a renderer for the current terminal (e.g. piped, non-interactive
// output).
func RenderANSI(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

// Summary renders a one-line lipgloss-styled header for the CLI,
// distinct from the Markdown report (used above the report body).
func Summary(report *syncengine.Report) string {
	counts := report.Counts()
	mode := "apply"
	if report.DryRun {
		mode = "dry-run"
	}
	style := okStyle
	if counts["failures"] > 0 {
		style = warnStyle
	}
	header := headerStyle.Render(fmt.Sprintf("obssync: %s (%s)", report.VaultID, mode))
	body := style.Render(fmt.Sprintf(
		"updates=%d creates(obs->rem)=%d creates(rem->obs)=%d deletes=%d dedup=%d failures=%d",
		counts["updates"], counts["creates_obs_rem"], counts["creates_rem_obs"],
		counts["deletes"], counts["dedup_clusters"], counts["failures"],
	))
	footer := footerStyle.Render("run `obssync history --vault " + report.VaultID + "` for past runs")
	return header + "\n" + body + "\n" + footer
}
