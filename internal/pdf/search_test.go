package pdf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSearch_FindPDFs(t *testing.T) {
	search := NewSearch(1024 * 1024)
	tempDir := t.TempDir()

	base := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)
	files := []struct {
		name    string
		content []byte
		age     time.Duration
	}{
		{name: "doe_20250108.pdf", content: make([]byte, 100), age: 48 * time.Hour},
		{name: "doe_20250110.pdf", content: make([]byte, 200), age: 0},
		{name: "doe_20250109.PDF", content: make([]byte, 300), age: 24 * time.Hour},
		{name: "notes.txt", content: []byte("not a pdf"), age: 0},
		{name: ".partial.pdf", content: make([]byte, 10), age: 0},
		{name: "empty.pdf", content: nil, age: 0},
		{name: "large.pdf", content: make([]byte, 2*1024*1024), age: 0},
	}
	for _, f := range files {
		path := filepath.Join(tempDir, f.name)
		if err := os.WriteFile(path, f.content, 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", f.name, err)
		}
		mod := base.Add(-f.age)
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("failed to set times on %s: %v", f.name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(tempDir, "sub.pdf"), 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}

	got, err := search.FindPDFs(tempDir)
	if err != nil {
		t.Fatalf("FindPDFs() unexpected error: %v", err)
	}

	want := []string{"doe_20250110.pdf", "doe_20250109.PDF", "doe_20250108.pdf"}
	if len(got) != len(want) {
		t.Fatalf("FindPDFs() returned %d files, want %d: %+v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("FindPDFs()[%d] = %s, want %s", i, got[i].Name, name)
		}
		if !filepath.IsAbs(got[i].Path) {
			t.Errorf("FindPDFs()[%d].Path = %s, want absolute path", i, got[i].Path)
		}
	}

	latest, err := search.Latest(tempDir)
	if err != nil {
		t.Fatalf("Latest() unexpected error: %v", err)
	}
	if latest.Name != "doe_20250110.pdf" {
		t.Errorf("Latest() = %s, want doe_20250110.pdf", latest.Name)
	}
}

func TestSearch_FindPDFs_Errors(t *testing.T) {
	search := NewSearch(1024)

	if _, err := search.FindPDFs(""); err == nil {
		t.Error("FindPDFs(\"\") expected error")
	}
	if _, err := search.FindPDFs(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("FindPDFs() expected error for missing directory")
	}
	if _, err := search.Latest(t.TempDir()); err == nil {
		t.Error("Latest() expected error for a directory without PDFs")
	}
}

func TestMatchName(t *testing.T) {
	files := []FileInfo{
		{Name: "doe_20250110.pdf"},
		{Name: "DOE_20250111.pdf"},
		{Name: "caderno_extra.pdf"},
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "empty query keeps all", query: "", want: 3},
		{name: "case-insensitive", query: "doe_", want: 2},
		{name: "date fragment", query: "20250111", want: 1},
		{name: "no match", query: "suplemento", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchName(files, tt.query); len(got) != tt.want {
				t.Errorf("MatchName(%q) returned %d files, want %d", tt.query, len(got), tt.want)
			}
		})
	}
}
