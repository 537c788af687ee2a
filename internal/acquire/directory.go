package acquire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/criapa/DOE-PE/internal/logger"
	"github.com/criapa/DOE-PE/internal/pdf"
)

// DirectoryAcquirer resolves targets against PDFs already on disk.
type DirectoryAcquirer struct {
	dir    string
	search *pdf.Search
	log    *slog.Logger
}

// NewDirectoryAcquirer serves editions from dir
func NewDirectoryAcquirer(dir string, maxFileSize int64, log *slog.Logger) *DirectoryAcquirer {
	return &DirectoryAcquirer{
		dir:    dir,
		search: pdf.NewSearch(maxFileSize),
		log:    logger.OrDiscard(log),
	}
}

// Acquire returns the newest PDF for the latest target, otherwise the file
// named after the date or, failing that, any PDF whose name contains the date.
func (d *DirectoryAcquirer) Acquire(ctx context.Context, target Target) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError(target, "lookup", err)
	}

	files, err := d.search.FindPDFs(d.dir)
	if err != nil {
		return "", newError(target, "list", err)
	}
	if len(files) == 0 {
		return "", newError(target, "lookup", fmt.Errorf("%w: %s is empty", ErrNotAvailable, d.dir))
	}

	if target.Latest {
		d.log.Debug("resolved latest edition", slog.String("path", files[0].Path))
		return files[0].Path, nil
	}

	for _, f := range files {
		if f.Name == target.FileName() {
			return f.Path, nil
		}
	}
	for _, f := range files {
		if target.matches(f.Name) {
			return f.Path, nil
		}
	}

	return "", newError(target, "lookup", ErrNotAvailable)
}
