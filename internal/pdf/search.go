package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Search discovers gazette PDFs in the download directory
type Search struct {
	validator *Validator
}

// NewSearch creates a new PDF search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
	}
}

// FindPDFs lists the PDF files directly inside directory, newest first.
// Files failing the cheap file-info validation are skipped.
func (s *Search) FindPDFs(directory string) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	entries, err := os.ReadDir(absDirectory)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !isPDFName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(absDirectory, entry.Name())
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModifiedTime.Equal(files[j].ModifiedTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModifiedTime.After(files[j].ModifiedTime)
	})

	return files, nil
}

// Latest returns the most recently modified PDF in directory
func (s *Search) Latest(directory string) (FileInfo, error) {
	files, err := s.FindPDFs(directory)
	if err != nil {
		return FileInfo{}, err
	}
	if len(files) == 0 {
		return FileInfo{}, fmt.Errorf("no PDF files in %s", directory)
	}
	return files[0], nil
}

// MatchName filters files whose name contains query, case-insensitively
func MatchName(files []FileInfo, query string) []FileInfo {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return files
	}

	var out []FileInfo
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.Name), query) {
			out = append(out, f)
		}
	}
	return out
}
