package main

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criapa/DOE-PE/internal/catalog"
	"github.com/criapa/DOE-PE/internal/pipeline"
	"github.com/criapa/DOE-PE/internal/report"
	"github.com/criapa/DOE-PE/internal/scan"
)

func noColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version, buildTime, gitCommit = "1.2.3", "2025-01-10_06:00:00", "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	var buf bytes.Buffer
	printVersion(&buf)

	for _, want := range []string{
		"DOE-PE Monitor",
		"Version: 1.2.3",
		"Build Time: 2025-01-10_06:00:00",
		"Git Commit: abc123",
		"Built with: " + runtime.Version(),
	} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "DOE-PE Monitor")
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "scan", "schedule", "serve", "mcp", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"download-dir", "reports-dir", "source", "kafka-brokers", "schedule", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestRunRejectsBadDate(t *testing.T) {
	_, err := execute(t, "run", "31/02/2025")
	assert.Error(t, err)
}

func TestRunFromEmptyDirectory(t *testing.T) {
	noColor(t)
	downloads := t.TempDir()
	reports := filepath.Join(t.TempDir(), "relatorios")

	out, err := execute(t,
		"--source", "directory",
		"--download-dir", downloads,
		"--reports-dir", reports,
		"--log-level", "error",
		"run", "10/01/2025",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "10/01/2025  not available")
	assert.Contains(t, out, "Findings: 0")
}

func TestScanDryRunSkipsUnreadableFiles(t *testing.T) {
	noColor(t)
	dir := t.TempDir()

	out, err := execute(t,
		"--source", "directory",
		"--download-dir", dir,
		"--reports-dir", dir,
		"--log-level", "error",
		"scan", "--dry-run", filepath.Join(dir, "missing.pdf"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "No catalog terms found.")
	assert.Contains(t, out, "Documents: 0")
}

func TestScanRequiresArgument(t *testing.T) {
	_, err := execute(t, "scan")
	assert.Error(t, err)
}

func TestPrintFindings(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	printFindings(&buf, []scan.Finding{
		{
			SourceFile: "DOE_10-01-2025.pdf", Page: 3, DetectedTopic: "SECRETARIA DE ADMINISTRAÇÃO",
			Category: catalog.CategoryContests, MatchedTerm: "concurso público",
			Impact: catalog.ImpactHigh, ContextSnippet: "...abertura de concurso público...",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "[HIGH  ] DOE_10-01-2025.pdf p.3 CONCURSOS_SELECOES: \"concurso público\"")
	assert.Contains(t, out, "SECRETARIA DE ADMINISTRAÇÃO | ...abertura de concurso público...")
}

func TestPrintSummary(t *testing.T) {
	noColor(t)

	summary := &pipeline.RunSummary{
		RunID: "01JH00000000000000000000AA",
		Mode:  pipeline.ModeBatch,
		Targets: []pipeline.TargetOutcome{
			{Target: "10/01/2025", Status: pipeline.StatusOK, Pages: 12, Findings: 2},
			{Target: "11/01/2025", Status: pipeline.StatusNotAvailable},
			{Target: "12/01/2025", Status: pipeline.StatusFailed, Error: "invalid PDF file"},
		},
		Stats: scan.Stats{
			Documents: 1, PagesScanned: 11, PagesSkipped: 1, Findings: 2, HighImpact: 1,
			ByCategory: map[string]int{"SAUDE_BIOTEC": 1, "CONCURSOS_SELECOES": 1},
		},
		Artifacts:  []report.Artifacts{{JSON: "relatorios/relatorio_doe_20250110_0600.json"}},
		AlertsSent: 1,
	}

	var buf bytes.Buffer
	printSummary(&buf, summary)
	out := buf.String()

	for _, want := range []string{
		"Run 01JH00000000000000000000AA (batch)",
		"10/01/2025  12 pages, 2 findings",
		"11/01/2025  not available",
		"12/01/2025  invalid PDF file",
		"Pages: 12 (without text: 1)",
		"ALERT: 1 high-impact finding(s)",
		"Report: relatorios/relatorio_doe_20250110_0600.json",
		"Alerts sent: 1",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "CONCURSOS_SELECOES"), strings.Index(out, "SAUDE_BIOTEC"))
}
