package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/criapa/DOE-PE/internal/catalog"
	"github.com/criapa/DOE-PE/internal/pipeline"
	"github.com/criapa/DOE-PE/internal/scan"
)

var (
	colorHigh   = color.New(color.FgRed, color.Bold)
	colorMedium = color.New(color.FgYellow)
	colorLow    = color.New(color.FgCyan)
	colorOK     = color.New(color.FgGreen, color.Bold)
	colorMuted  = color.New(color.FgWhite)
)

func impactColor(i catalog.Impact) *color.Color {
	switch i {
	case catalog.ImpactHigh:
		return colorHigh
	case catalog.ImpactMedium:
		return colorMedium
	default:
		return colorLow
	}
}

// printFindings lists findings one per line, coloured by impact
func printFindings(w io.Writer, findings []scan.Finding) {
	if len(findings) == 0 {
		colorMuted.Fprintln(w, "No catalog terms found.")
		return
	}

	for _, f := range findings {
		impactColor(f.Impact).Fprintf(w, "[%-6s]", f.Impact)
		fmt.Fprintf(w, " %s p.%d %s: %q\n", f.SourceFile, f.Page, f.Category, f.MatchedTerm)
		colorMuted.Fprintf(w, "         %s | %s\n", f.DetectedTopic, f.ContextSnippet)
	}
}

func printStats(w io.Writer, st scan.Stats) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Documents: %d  Pages: %d (without text: %d)  Findings: %d\n",
		st.Documents, st.PagesScanned+st.PagesSkipped, st.PagesSkipped, st.Findings)

	categories := make([]string, 0, len(st.ByCategory))
	for c := range st.ByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		fmt.Fprintf(w, "  %-22s %d\n", c, st.ByCategory[c])
	}

	if st.HighImpact > 0 {
		colorHigh.Fprintf(w, "ALERT: %d high-impact finding(s)\n", st.HighImpact)
	}
}

// printSummary shows per-target outcomes, totals and written reports
func printSummary(w io.Writer, s *pipeline.RunSummary) {
	fmt.Fprintf(w, "Run %s (%s)\n", s.RunID, s.Mode)
	for _, t := range s.Targets {
		switch t.Status {
		case pipeline.StatusOK:
			colorOK.Fprintf(w, "  ✓ %s", t.Target)
			fmt.Fprintf(w, "  %d pages, %d findings\n", t.Pages, t.Findings)
		case pipeline.StatusNotAvailable:
			colorMedium.Fprintf(w, "  - %s", t.Target)
			fmt.Fprintf(w, "  not available\n")
		default:
			colorHigh.Fprintf(w, "  ✗ %s", t.Target)
			fmt.Fprintf(w, "  %s\n", t.Error)
		}
	}

	printStats(w, s.Stats)

	for _, a := range s.Artifacts {
		for _, p := range a.Paths() {
			fmt.Fprintf(w, "Report: %s\n", p)
		}
	}
	if s.AlertsSent > 0 {
		fmt.Fprintf(w, "Alerts sent: %d\n", s.AlertsSent)
	}
}
