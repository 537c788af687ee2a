package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

// writeTestPDF writes a minimal single-font PDF with one text line per page
// and returns its path.
func writeTestPDF(t *testing.T, dir, name string, pages ...string) string {
	t.Helper()

	var objects []string
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		stream := ""
		if text != "" {
			escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escaped)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

func TestNewReader(t *testing.T) {
	tests := []struct {
		name        string
		maxFileSize int64
	}{
		{name: "standard max file size", maxFileSize: 100 * 1024 * 1024},
		{name: "small max file size", maxFileSize: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewReader(tt.maxFileSize, nil)
			if got.maxFileSize != tt.maxFileSize {
				t.Errorf("NewReader() maxFileSize = %v, want %v", got.maxFileSize, tt.maxFileSize)
			}
			if got.maxPageText != 1024*1024 {
				t.Errorf("NewReader() maxPageText = %v, want %v", got.maxPageText, 1024*1024)
			}
			if got.log == nil {
				t.Error("NewReader() should never leave the logger nil")
			}
		})
	}
}

func TestReader_ExtractPages(t *testing.T) {
	tempDir := t.TempDir()
	reader := NewReader(1024*1024, nil)

	path := writeTestPDF(t, tempDir, "doe_20250110.pdf",
		"CONCURSO PUBLICO PARA PROFESSOR",
		"",
		"Vacina contra dengue",
	)

	pages, err := reader.ExtractPages(path)
	if err != nil {
		t.Fatalf("ExtractPages() unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("ExtractPages() returned %d pages, want 3", len(pages))
	}

	for i, page := range pages {
		if page.Number != i+1 {
			t.Errorf("page %d has Number %d", i+1, page.Number)
		}
	}
	if !strings.Contains(pages[0].Text, "CONCURSO") {
		t.Errorf("page 1 text = %q, want it to contain CONCURSO", pages[0].Text)
	}
	if strings.TrimSpace(pages[1].Text) != "" {
		t.Errorf("page 2 text = %q, want empty", pages[1].Text)
	}
	if !strings.Contains(pages[2].Text, "dengue") {
		t.Errorf("page 3 text = %q, want it to contain dengue", pages[2].Text)
	}
}

func TestReader_ExtractPages_Errors(t *testing.T) {
	tempDir := t.TempDir()
	reader := NewReader(1024, nil)

	txtPath := filepath.Join(tempDir, "gazette.txt")
	if err := os.WriteFile(txtPath, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("failed to create txt file: %v", err)
	}
	emptyPath := filepath.Join(tempDir, "empty.pdf")
	if err := os.WriteFile(emptyPath, nil, 0o644); err != nil {
		t.Fatalf("failed to create empty file: %v", err)
	}
	largePath := filepath.Join(tempDir, "large.pdf")
	if err := os.WriteFile(largePath, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("failed to create large file: %v", err)
	}
	dirPath := filepath.Join(tempDir, "folder.pdf")
	if err := os.Mkdir(dirPath, 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		errorSubstr string
	}{
		{name: "empty path", path: "", errorSubstr: "path cannot be empty"},
		{name: "missing file", path: filepath.Join(tempDir, "missing.pdf"), errorSubstr: "does not exist"},
		{name: "not a pdf", path: txtPath, errorSubstr: "not a PDF"},
		{name: "empty file", path: emptyPath, errorSubstr: "file is empty"},
		{name: "too large", path: largePath, errorSubstr: "file too large"},
		{name: "directory", path: dirPath, errorSubstr: "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.ExtractPages(tt.path)
			if err == nil {
				t.Fatal("ExtractPages() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorSubstr) {
				t.Errorf("ExtractPages() error = %v, want substring %q", err, tt.errorSubstr)
			}
		})
	}
}

func TestReader_ExtractPages_RejectsTruncatedPDF(t *testing.T) {
	tempDir := t.TempDir()
	reader := NewReader(1024*1024, nil)

	full := writeTestPDF(t, tempDir, "full.pdf", "CONCURSO PUBLICO", "EDITAL")
	data, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("failed to read test PDF: %v", err)
	}
	truncated := filepath.Join(tempDir, "truncated.pdf")
	if err := os.WriteFile(truncated, data[:len(data)/3], 0o644); err != nil {
		t.Fatalf("failed to write truncated PDF: %v", err)
	}

	pages, err := reader.ExtractPages(truncated)
	if err == nil {
		t.Fatalf("ExtractPages() = %d pages, want structural error", len(pages))
	}
	if !strings.Contains(err.Error(), "invalid PDF") {
		t.Errorf("ExtractPages() error = %v, want substring %q", err, "invalid PDF")
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "short", in: "abc", limit: 10, want: "abc"},
		{name: "exact", in: "abc", limit: 3, want: "abc"},
		{name: "ascii cut", in: "abcdef", limit: 4, want: "abcd"},
		{name: "cut inside two-byte rune", in: "saúde", limit: 3, want: "sa"},
		{name: "cut after two-byte rune", in: "saúde", limit: 4, want: "saú"},
		{name: "cut inside first rune", in: "ção", limit: 1, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateText(tt.in, tt.limit)
			if got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateText(%q, %d) produced invalid UTF-8", tt.in, tt.limit)
			}
		})
	}
}
