package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocumentInfo describes a single gazette PDF
type DocumentInfo struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Pages        int    `json:"pages"`
	ModifiedDate string `json:"modified_date"`
	Title        string `json:"title,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreatedDate  string `json:"created_date,omitempty"`
}

// ArchiveStats summarizes the PDFs kept in the download directory
type ArchiveStats struct {
	Directory   string `json:"directory"`
	TotalFiles  int    `json:"total_files"`
	TotalSize   int64  `json:"total_size"`
	NewestFile  string `json:"newest_file,omitempty"`
	OldestFile  string `json:"oldest_file,omitempty"`
	AverageSize int64  `json:"average_size"`
}

// Stats handles PDF statistics operations
type Stats struct {
	validator *Validator
	search    *Search
}

// NewStats creates a new PDF stats analyzer with the specified constraints
func NewStats(maxFileSize int64) *Stats {
	return &Stats{
		validator: NewValidator(maxFileSize),
		search:    NewSearch(maxFileSize),
	}
}

// DocumentInfo returns size, page count and info-dictionary fields of a PDF
func (s *Stats) DocumentInfo(path string) (*DocumentInfo, error) {
	pages, err := s.validator.Validate(path)
	if err != nil {
		return nil, err
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	result := &DocumentInfo{
		Path:         path,
		Size:         fileInfo.Size(),
		Pages:        pages,
		ModifiedDate: fileInfo.ModTime().Format("2006-01-02 15:04:05"),
	}

	s.extractMetadata(r, result)

	return result, nil
}

// ArchiveStats summarizes the PDFs directly inside directory
func (s *Stats) ArchiveStats(directory string) (*ArchiveStats, error) {
	files, err := s.search.FindPDFs(directory)
	if err != nil {
		return nil, err
	}

	result := &ArchiveStats{
		Directory:  directory,
		TotalFiles: len(files),
	}
	for _, f := range files {
		result.TotalSize += f.Size
	}
	if len(files) > 0 {
		// FindPDFs sorts newest first
		result.NewestFile = files[0].Name
		result.OldestFile = files[len(files)-1].Name
		result.AverageSize = result.TotalSize / int64(len(files))
	}

	return result, nil
}

// extractMetadata reads the trailer Info dictionary; failures leave the
// fields empty
func (s *Stats) extractMetadata(r *pdf.Reader, result *DocumentInfo) {
	defer func() {
		_ = recover()
	}()

	trailer := r.Trailer()
	if trailer.IsNull() {
		return
	}

	info := trailer.Key("Info")
	if info.IsNull() {
		return
	}

	result.Title = infoText(info, "Title")
	result.Producer = infoText(info, "Producer")
	result.CreatedDate = infoText(info, "CreationDate")
}

func infoText(info pdf.Value, key string) string {
	v := info.Key(key)
	if v.IsNull() {
		return ""
	}
	return strings.TrimSpace(v.Text())
}
