package pdf

import (
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/criapa/DOE-PE/internal/logger"
	"github.com/criapa/DOE-PE/internal/scan"
)

// Reader extracts per-page plain text from gazette PDFs
type Reader struct {
	maxFileSize int64
	maxPageText int
	validator   *Validator
	log         *slog.Logger
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64, log *slog.Logger) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxPageText: 1024 * 1024, // 1MB of text per page
		validator:   NewValidator(maxFileSize),
		log:         logger.OrDiscard(log),
	}
}

// ExtractPages returns the text of every page in order. Pages whose text
// cannot be extracted are returned with empty text so the scanner skips them.
// A file that fails the structural check is rejected as a whole.
func (r *Reader) ExtractPages(path string) ([]scan.Page, error) {
	if _, err := r.validator.Validate(path); err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := pdfReader.NumPage()
	pages := make([]scan.Page, 0, total)
	for pageNum := 1; pageNum <= total; pageNum++ {
		text, err := r.pageText(pdfReader, pageNum)
		if err != nil {
			r.log.Debug("page text unavailable",
				slog.String("file", path),
				slog.Int("page", pageNum),
				slog.Any("err", err),
			)
		}
		pages = append(pages, scan.Page{Number: pageNum, Text: text})
	}

	return pages, nil
}

// pageText extracts the plain text of one page. Malformed content streams can
// make the underlying library panic; that is reported as an error for the page.
func (r *Reader) pageText(pdfReader *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("panic extracting page %d: %v", pageNum, rec)
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", pageNum, err)
	}

	return truncateText(content, r.maxPageText), nil
}

// truncateText cuts s to at most limit bytes without splitting a rune
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
