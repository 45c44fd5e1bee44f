// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire downloads papers and creates metadata records.
//
// Papers live under a papers directory: the PDF in raw/<slug>.pdf and a
// YAML record in metadata/<slug>.yaml. A paper whose PDF already exists is
// not downloaded again.
package acquire

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/smartpaper/internal/httputil"
	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/pkg/types"
)

const (
	rawDir      = "raw"
	metadataDir = "metadata"
)

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Papers     []*types.Paper
}

// Total returns the total number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any papers failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// MetadataPath returns where the metadata record for slug is written.
func MetadataPath(papersDir, slug string) string {
	return filepath.Join(papersDir, metadataDir, slug+".yaml")
}

// AcquirePaper resolves a single identifier, downloads the PDF, and writes
// metadata. If the PDF already exists on disk, it skips the download.
// The skipped return value indicates whether the download was skipped.
func AcquirePaper(ctx context.Context, client *http.Client, identifier string, cfg types.AcquisitionConfig, w io.Writer) (paper *types.Paper, skipped bool, err error) {
	idType, normalized := Classify(identifier)
	if idType == TypeUnknown {
		return nil, false, fmt.Errorf("unrecognized identifier format: %q", identifier)
	}

	slug := Slug(idType, normalized)
	pdfPath := filepath.Join(cfg.PapersDir, rawDir, slug+".pdf")
	metaPath := MetadataPath(cfg.PapersDir, slug)
	pdfURL := PDFURL(idType, normalized)

	if _, err := os.Stat(pdfPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", slug)
		p, readErr := ReadMetadata(metaPath)
		if readErr != nil {
			p = &types.Paper{ID: slug, SourceURL: pdfURL, PDFPath: pdfPath, Source: idType.String()}
		}
		return p, true, nil
	}

	for _, dir := range []string{
		filepath.Join(cfg.PapersDir, rawDir),
		filepath.Join(cfg.PapersDir, metadataDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fmt.Fprintf(w, "downloading: %s (%s)\n", slug, idType)

	if err := downloadFile(ctx, client, pdfURL, pdfPath, cfg); err != nil {
		return nil, false, fmt.Errorf("downloading %s: %w", slug, err)
	}

	p := &types.Paper{
		ID:               slug,
		SourceURL:        pdfURL,
		PDFPath:          pdfPath,
		Source:           idType.String(),
		ConversionStatus: types.ConversionNone,
	}

	if idType == TypeArxiv {
		if err := fetchArxivMetadata(ctx, client, normalized, p, cfg); err != nil {
			logging.FromContext(ctx).Warn("arXiv metadata fetch failed", "id", normalized, "err", err)
			fmt.Fprintf(w, "  warning: arXiv metadata fetch failed: %v\n", err)
		}
	}

	if err := WriteMetadata(p, metaPath); err != nil {
		return nil, false, fmt.Errorf("writing metadata for %s: %w", slug, err)
	}

	return p, false, nil
}

// AcquireBatch processes multiple identifiers, printing per-item status
// and returning a summary. It continues after individual failures and
// applies a delay between consecutive downloads.
func AcquireBatch(ctx context.Context, client *http.Client, identifiers []string, cfg types.AcquisitionConfig, w io.Writer) BatchResult {
	var result BatchResult
	for i, id := range identifiers {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && cfg.DownloadDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(cfg.DownloadDelay):
			}
		}
		paper, wasSkipped, err := AcquirePaper(ctx, client, id, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
			result.Failed++
			continue
		}
		if wasSkipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Papers = append(result.Papers, paper)
	}
	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

// downloadFile fetches rawURL to destPath through a temporary file that is
// renamed into place only after the body has been written completely.
func downloadFile(ctx context.Context, client *http.Client, rawURL, destPath string, cfg types.AcquisitionConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

// fetchArxivMetadata retrieves title, abstract, authors and date from the
// arXiv export API.
func fetchArxivMetadata(ctx context.Context, client *http.Client, arxivID string, paper *types.Paper, cfg types.AcquisitionConfig) error {
	apiURL := arxivAPIBase + "?id_list=" + url.QueryEscape(arxivID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return fmt.Errorf("parsing arXiv response: %w", err)
	}

	if len(feed.Entries) == 0 {
		return fmt.Errorf("no entries found for arXiv ID %s", arxivID)
	}

	entry := feed.Entries[0]
	paper.Title = strings.Join(strings.Fields(entry.Title), " ")
	paper.Abstract = strings.TrimSpace(entry.Summary)

	for _, a := range entry.Authors {
		paper.Authors = append(paper.Authors, strings.TrimSpace(a.Name))
	}

	if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
		paper.Date = t
	}
	return nil
}

// WriteMetadata writes a Paper record to a YAML file.
func WriteMetadata(paper *types.Paper, path string) error {
	data, err := yaml.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadMetadata reads a Paper record from a YAML file.
func ReadMetadata(path string) (*types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var paper types.Paper
	if err := yaml.Unmarshal(data, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}
