// Package dashboard loads the JSON reports and serves filtered views, KPIs
// and a CSV export over HTTP.
package dashboard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/criapa/DOE-PE/internal/scan"
)

// Record is a finding tagged with the report file it was loaded from
type Record struct {
	scan.Finding
	OriginFile string `json:"arquivo_origem"`
}

// LoadError describes a report file that could not be read
type LoadError struct {
	File string `json:"file"`
	Err  string `json:"error"`
}

// LoadResult is the outcome of reading a reports directory
type LoadResult struct {
	Records []Record    `json:"-"`
	Files   int         `json:"files"`
	Errors  []LoadError `json:"errors,omitempty"`
}

// LoadReports reads every *.json file in dir in name order. Unreadable or
// malformed files are reported in Errors and skipped. A missing directory
// yields an empty result.
func LoadReports(dir string) (LoadResult, error) {
	var res LoadResult

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return res, fmt.Errorf("list reports: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		name := filepath.Base(file)

		data, err := os.ReadFile(file)
		if err != nil {
			res.Errors = append(res.Errors, LoadError{File: name, Err: err.Error()})
			continue
		}

		var findings []scan.Finding
		if err := json.Unmarshal(data, &findings); err != nil {
			res.Errors = append(res.Errors, LoadError{File: name, Err: err.Error()})
			continue
		}

		res.Files++
		for _, f := range findings {
			res.Records = append(res.Records, Record{Finding: f, OriginFile: name})
		}
	}

	return res, nil
}
