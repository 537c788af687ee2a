package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/criapa/DOE-PE/internal/catalog"
	"github.com/criapa/DOE-PE/internal/config"
	"github.com/criapa/DOE-PE/internal/dashboard"
	"github.com/criapa/DOE-PE/internal/logger"
	"github.com/criapa/DOE-PE/internal/pdf"
	"github.com/criapa/DOE-PE/internal/scan"
)

// maxListedFindings caps the findings printed by one tool call
const maxListedFindings = 50

// FileScanner extracts and scans a single PDF
type FileScanner interface {
	ScanFile(path string) (scan.ScanResult, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	scanner   FileScanner
	catalog   *catalog.Catalog
	reports   *dashboard.Service
	guard     *pdf.PathGuard
	search    *pdf.Search
	stats     *pdf.Stats
	log       *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, scanner FileScanner, cat *catalog.Catalog, reports *dashboard.Service, log *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if scanner == nil {
		return nil, errors.New("scanner cannot be nil")
	}
	if cat == nil {
		return nil, errors.New("catalog cannot be nil")
	}
	if reports == nil {
		return nil, errors.New("reports cannot be nil")
	}

	guard, err := pdf.NewPathGuard(cfg.DownloadDir)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		scanner:   scanner,
		catalog:   cat,
		reports:   reports,
		guard:     guard,
		search:    pdf.NewSearch(cfg.MaxFileSize),
		stats:     pdf.NewStats(cfg.MaxFileSize),
		log:       logger.OrDiscard(log),
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"gazette_scan_file",
		mcp.WithDescription("Scan a downloaded gazette PDF for catalog keywords and list the findings"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF path, absolute or relative to the download directory"),
		),
	), s.handleScanFile)

	s.mcpServer.AddTool(mcp.NewTool(
		"gazette_list_pdfs",
		mcp.WithDescription("List the gazette PDFs in the download directory, newest first"),
		mcp.WithString("directory",
			mcp.Description("Subdirectory of the download directory (uses the download directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional case-insensitive file name filter"),
		),
	), s.handleListPDFs)

	s.mcpServer.AddTool(mcp.NewTool(
		"gazette_pdf_info",
		mcp.WithDescription("Show size, page count and document metadata of a gazette PDF"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("PDF path, absolute or relative to the download directory"),
		),
	), s.handlePDFInfo)

	s.mcpServer.AddTool(mcp.NewTool(
		"gazette_archive_stats",
		mcp.WithDescription("Summarize the PDFs kept in the download directory"),
	), s.handleArchiveStats)

	s.mcpServer.AddTool(mcp.NewTool(
		"gazette_findings",
		mcp.WithDescription("Query the findings stored in the report files"),
		mcp.WithString("impact",
			mcp.Description("Comma-separated impact levels: HIGH, MEDIUM, LOW"),
		),
		mcp.WithString("category",
			mcp.Description("Comma-separated category names"),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive text searched in the snippets"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of findings to return (default 50)"),
		),
	), s.handleFindings)

	s.mcpServer.AddTool(mcp.NewTool(
		"gazette_catalog",
		mcp.WithDescription("Show the keyword categories, impacts and terms being monitored"),
	), s.handleCatalog)
}

// Handler functions
func (s *Server) handleScanFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.guard.Resolve(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.scanner.ScanFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	s.log.Debug("mcp scan", slog.String("path", path), slog.Int("findings", len(result.Findings)))

	return mcp.NewToolResultText(formatScanResult(path, result)), nil
}

func (s *Server) handleListPDFs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	directory := s.guard.Root()
	if dir, ok := args["directory"].(string); ok && dir != "" {
		resolved, err := s.guard.Resolve(dir)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		directory = resolved
	}

	files, err := s.search.FindPDFs(directory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query, _ := args["query"].(string)
	if query != "" {
		files = pdf.MatchName(files, query)
	}

	if len(files) == 0 {
		text := fmt.Sprintf("No PDF files found in directory: %s", directory)
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}

	return mcp.NewToolResultText(formatFileList(directory, query, files)), nil
}

func (s *Server) handlePDFInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.guard.Resolve(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.stats.DocumentInfo(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := "Gazette PDF\n"
	text += fmt.Sprintf("File: %s\n", info.Path)
	text += fmt.Sprintf("Size: %d bytes\n", info.Size)
	text += fmt.Sprintf("Pages: %d\n", info.Pages)
	text += fmt.Sprintf("Modified: %s\n", info.ModifiedDate)
	if info.Title != "" {
		text += fmt.Sprintf("Title: %s\n", info.Title)
	}
	if info.Producer != "" {
		text += fmt.Sprintf("Producer: %s\n", info.Producer)
	}
	if info.CreatedDate != "" {
		text += fmt.Sprintf("Created: %s\n", info.CreatedDate)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleArchiveStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.stats.ArchiveStats(s.guard.Root())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := "Gazette Archive Statistics\n"
	text += fmt.Sprintf("Directory: %s\n", st.Directory)
	text += fmt.Sprintf("Total PDF files: %d\n", st.TotalFiles)
	text += fmt.Sprintf("Total size: %d bytes\n", st.TotalSize)
	if st.TotalFiles > 0 {
		text += fmt.Sprintf("Average file size: %d bytes\n", st.AverageSize)
		text += fmt.Sprintf("Newest file: %s\n", st.NewestFile)
		text += fmt.Sprintf("Oldest file: %s\n", st.OldestFile)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFindings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	f := dashboard.Filter{Limit: maxListedFindings}
	if raw, ok := args["impact"].(string); ok {
		for _, part := range splitArg(raw) {
			imp, err := catalog.ParseImpact(part)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			f.Impacts = append(f.Impacts, imp)
		}
	}
	if raw, ok := args["category"].(string); ok {
		f.Categories = splitArg(raw)
	}
	if q, ok := args["query"].(string); ok {
		f.Query = q
	}
	if n, ok := args["limit"].(float64); ok && n > 0 {
		f.Limit = int(n)
	}

	if _, err := s.reports.Reload(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load reports: %v", err)), nil
	}

	store := s.reports.Store()
	kpis, err := store.KPIs(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := store.Query(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(recs) == 0 {
		return mcp.NewToolResultText("No findings match the given filters"), nil
	}

	text := fmt.Sprintf("Matching findings: %d (high impact: %d, gazettes: %d)\n",
		kpis.Mentions, kpis.HighImpact, kpis.Gazettes)
	if kpis.Mentions > len(recs) {
		text += fmt.Sprintf("Showing first %d\n", len(recs))
	}
	text += "\n"
	for i, r := range recs {
		text += formatFinding(i+1, r.Finding)
		text += fmt.Sprintf("   Report: %s\n", r.OriginFile)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("Keyword catalog (%d categories)\n", s.catalog.Len())
	s.catalog.Each(func(c catalog.Category) {
		text += fmt.Sprintf("\n• %s [%s]\n", c.Name, c.Impact)
		text += fmt.Sprintf("  Terms: %s\n", strings.Join(c.Terms, ", "))
	})
	return mcp.NewToolResultText(text), nil
}

// Formatting helpers
func formatScanResult(path string, result scan.ScanResult) string {
	st := result.Stats()
	text := fmt.Sprintf("Scanned: %s\n", path)
	text += fmt.Sprintf("Pages scanned: %d\n", st.PagesScanned)
	text += fmt.Sprintf("Pages without text: %d\n", st.PagesSkipped)
	text += fmt.Sprintf("Findings: %d\n", st.Findings)
	text += fmt.Sprintf("High impact: %d\n", st.HighImpact)

	if st.Findings == 0 {
		text += "\nNo catalog terms found.\n"
		return text
	}

	text += "\n"
	for i, f := range result.Findings {
		if i >= maxListedFindings {
			text += fmt.Sprintf("... and %d more findings\n", len(result.Findings)-maxListedFindings)
			break
		}
		text += formatFinding(i+1, f)
	}
	return text
}

func formatFinding(n int, f scan.Finding) string {
	text := fmt.Sprintf("%d. [%s] %s (p. %d) %s\n", n, f.Impact, f.Category, f.Page, f.MatchedTerm)
	text += fmt.Sprintf("   Topic: %s\n", f.DetectedTopic)
	text += fmt.Sprintf("   Snippet: %s\n", f.ContextSnippet)
	return text
}

func formatFileList(directory, query string, files []pdf.FileInfo) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", len(files), directory)
	if query != "" {
		text += fmt.Sprintf("Search query: %s\n", query)
	}
	text += "\nFiles:\n"

	for i, file := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime.Format("2006-01-02 15:04:05"))
	}
	return text
}

func splitArg(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Run serves MCP over stdio until the client disconnects
func (s *Server) Run(_ context.Context) error {
	s.log.Info("starting MCP server in stdio mode", slog.String("download_dir", s.guard.Root()))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
