package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/net/html"

	"github.com/criapa/DOE-PE/internal/logger"
)

// DatePlaceholder in the portal URL is replaced by the target date (dd/mm/yyyy)
// or removed for the latest edition.
const DatePlaceholder = "{date}"

// sniffLen is the header size filetype needs to recognise a document
const sniffLen = 261

// maxListingSize caps the listing page read from the portal
const maxListingSize = 4 << 20

// PortalAcquirer downloads editions from the gazette portal listing page.
type PortalAcquirer struct {
	listingURL  string
	downloadDir string
	maxFileSize int64
	client      *http.Client
	log         *slog.Logger
}

// PortalOption configures a PortalAcquirer
type PortalOption func(*PortalAcquirer)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) PortalOption {
	return func(p *PortalAcquirer) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) PortalOption {
	return func(p *PortalAcquirer) {
		p.log = logger.OrDiscard(l)
	}
}

// NewPortalAcquirer creates an acquirer that stores downloads in downloadDir
func NewPortalAcquirer(listingURL, downloadDir string, timeout time.Duration, maxFileSize int64, opts ...PortalOption) *PortalAcquirer {
	p := &PortalAcquirer{
		listingURL:  listingURL,
		downloadDir: downloadDir,
		maxFileSize: maxFileSize,
		client:      &http.Client{Timeout: timeout},
		log:         logger.OrDiscard(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire finds the edition link on the listing page and downloads it.
func (p *PortalAcquirer) Acquire(ctx context.Context, target Target) (string, error) {
	listing, err := p.listingFor(target)
	if err != nil {
		return "", newError(target, "listing url", err)
	}

	links, err := p.fetchLinks(ctx, listing)
	if err != nil {
		return "", newError(target, "listing", err)
	}

	link, ok := pickLink(links, target)
	if !ok {
		return "", newError(target, "select", ErrNotAvailable)
	}

	p.log.Info("downloading edition",
		slog.String("target", target.String()),
		slog.String("url", link.href.String()),
	)

	path, err := p.download(ctx, link.href, target)
	if err != nil {
		return "", newError(target, "download", err)
	}
	return path, nil
}

func (p *PortalAcquirer) listingFor(target Target) (*url.URL, error) {
	raw := p.listingURL
	if strings.Contains(raw, DatePlaceholder) {
		value := ""
		if !target.Latest {
			value = url.QueryEscape(target.Date.Format(LayoutBR))
		}
		raw = strings.ReplaceAll(raw, DatePlaceholder, value)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u, nil
}

type pdfLink struct {
	href *url.URL
	text string
}

func (p *PortalAcquirer) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotAvailable
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp, nil
}

func (p *PortalAcquirer) fetchLinks(ctx context.Context, listing *url.URL) ([]pdfLink, error) {
	resp, err := p.get(ctx, listing)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(io.LimitReader(resp.Body, maxListingSize))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	return collectPDFLinks(doc, listing), nil
}

// collectPDFLinks walks the document and keeps anchors pointing at PDFs, in
// document order
func collectPDFLinks(doc *html.Node, base *url.URL) []pdfLink {
	var links []pdfLink
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				ref, err := url.Parse(strings.TrimSpace(attr.Val))
				if err != nil || !strings.HasSuffix(strings.ToLower(ref.Path), ".pdf") {
					continue
				}
				links = append(links, pdfLink{
					href: base.ResolveReference(ref),
					text: strings.TrimSpace(nodeText(n)),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// pickLink returns the first PDF link for the latest edition, or the first
// link whose URL or text mentions the target date
func pickLink(links []pdfLink, target Target) (pdfLink, bool) {
	if len(links) == 0 {
		return pdfLink{}, false
	}
	if target.Latest {
		return links[0], true
	}
	for _, l := range links {
		if target.matches(l.href.Path) || target.matches(l.text) {
			return l, true
		}
	}
	return pdfLink{}, false
}

// download streams the payload into a hidden temp file, checks it is a PDF
// and renames it to the target file name
func (p *PortalAcquirer) download(ctx context.Context, u *url.URL, target Target) (path string, err error) {
	if err := os.MkdirAll(p.downloadDir, 0o750); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	resp, err := p.get(ctx, u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(p.downloadDir, ".doe-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, p.maxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if n > p.maxFileSize {
		return "", fmt.Errorf("payload exceeds %d bytes", p.maxFileSize)
	}

	head := make([]byte, sniffLen)
	m, err := tmp.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read header: %w", err)
	}
	if !filetype.Is(head[:m], "pdf") {
		return "", fmt.Errorf("payload from %s is not a PDF", u.Redacted())
	}

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	final := filepath.Join(p.downloadDir, target.FileName())
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("store download: %w", err)
	}
	return filepath.Abs(final)
}
