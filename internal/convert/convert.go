// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements PDF-to-Markdown conversion with pluggable
// backends selected by name from a registry.
//
// A Pipeline wraps a backend with everything around a single conversion:
// reuse of earlier results, the PDF cache, importing extracted images into
// the image store, and writing markdown/<id>.md with YAML frontmatter.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/internal/store"
	"github.com/pdiddy/smartpaper/pkg/types"
)

const (
	// markdownDir is the subdirectory under the papers base for Markdown output.
	markdownDir = "markdown"
	// imagesDir holds one directory of extracted images per paper.
	imagesDir = "images"
)

// Result is what a backend produces for one PDF.
type Result struct {
	// Markdown is the converted document.
	Markdown string

	// ImageDir is the directory the backend wrote images to, if any.
	ImageDir string
}

// Converter transforms a PDF file into Markdown. Images the backend
// extracts are written under outDir and referenced by file name.
type Converter interface {
	Convert(ctx context.Context, pdfPath, outDir string) (Result, error)
}

// MarkdownCache stores converted Markdown keyed by source URL. store.Store
// implements it.
type MarkdownCache interface {
	GetMarkdown(ctx context.Context, url string) (string, bool, error)
	PutMarkdown(ctx context.Context, url, markdown string) error
}

// Outcome describes one ConvertPaper call.
type Outcome struct {
	Status types.ConversionStatus

	// Markdown is the document body without frontmatter.
	Markdown string

	// Path is the written markdown/<id>.md file.
	Path string

	// Images is the number of images imported into the store.
	Images int
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Cached    int
	Skipped   int
	Failed    int
}

// Total returns the total number of papers processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Cached + r.Skipped + r.Failed
}

// HasFailures reports whether any papers failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConversionNone is a local alias for "skip" status (markdown already exists).
const ConversionNone = types.ConversionNone

// Pipeline converts papers with one backend.
type Pipeline struct {
	Converter Converter

	// PapersDir is the base directory holding markdown/ and images/.
	PapersDir string

	// Cache, when set, is consulted before converting and filled after.
	Cache MarkdownCache

	// Images, when set, receives every image the backend extracted.
	Images store.ImageSink

	// UseCache reuses an existing markdown file or cached Markdown instead
	// of converting again.
	UseCache bool

	// StripReferences drops the references section of new conversions.
	StripReferences bool

	// ImportWorkers bounds concurrent image imports.
	ImportWorkers int
}

// NewPipeline builds a Pipeline from configuration. cache and images may be
// nil.
func NewPipeline(c Converter, cfg types.ConversionConfig, cache MarkdownCache, images store.ImageSink, importWorkers int) *Pipeline {
	return &Pipeline{
		Converter:       c,
		PapersDir:       cfg.PapersDir,
		Cache:           cache,
		Images:          images,
		UseCache:        cfg.UseCache,
		StripReferences: cfg.StripReferences,
		ImportWorkers:   importWorkers,
	}
}

// MarkdownPath returns where the Markdown for paper id is written.
func (p *Pipeline) MarkdownPath(id string) string {
	return filepath.Join(p.PapersDir, markdownDir, id+".md")
}

// Cached returns Markdown previously stored for sourceURL. Cache errors
// are logged and reported as a miss.
func (p *Pipeline) Cached(ctx context.Context, sourceURL string) (string, bool) {
	if !p.UseCache || p.Cache == nil || sourceURL == "" {
		return "", false
	}
	md, ok, err := p.Cache.GetMarkdown(ctx, sourceURL)
	if err != nil {
		logging.FromContext(ctx).Warn("pdf cache lookup failed", "url", sourceURL, "err", err)
		return "", false
	}
	return md, ok
}

// ConvertPaper converts a single paper and writes the result to the
// markdown directory. With UseCache set, an existing markdown file is
// reused (status none) and so is Markdown cached for the paper's source
// URL (status cached).
func (p *Pipeline) ConvertPaper(ctx context.Context, paper types.Paper, w io.Writer) (Outcome, error) {
	id := paperID(paper)
	mdPath := p.MarkdownPath(id)

	if p.UseCache {
		if data, err := os.ReadFile(mdPath); err == nil {
			_, body, err := SplitFrontmatter(string(data))
			if err != nil {
				body = string(data)
			}
			fmt.Fprintf(w, "skipped: %s (already exists)\n", id)
			return Outcome{Status: ConversionNone, Markdown: body, Path: mdPath}, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(mdPath), 0o755); err != nil {
		return p.fail(w, id, err)
	}

	if body, ok := p.Cached(ctx, paper.SourceURL); ok {
		if err := p.write(paper, id, mdPath, body); err != nil {
			return p.fail(w, id, err)
		}
		fmt.Fprintf(w, "cached: %s\n", id)
		return Outcome{Status: types.ConversionCached, Markdown: body, Path: mdPath}, nil
	}

	imageDir := filepath.Join(p.PapersDir, imagesDir, id)
	res, err := p.Converter.Convert(ctx, paper.PDFPath, imageDir)
	if err != nil {
		return p.fail(w, id, err)
	}

	body := res.Markdown
	if p.StripReferences {
		body = StripReferences(body)
	}

	var imported int
	if p.Images != nil && res.ImageDir != "" {
		imported, err = store.ImportDir(ctx, p.Images, id, res.ImageDir, p.ImportWorkers)
		if err != nil {
			return p.fail(w, id, fmt.Errorf("importing images: %w", err))
		}
	}

	if p.Cache != nil && paper.SourceURL != "" {
		if err := p.Cache.PutMarkdown(ctx, paper.SourceURL, body); err != nil {
			logging.FromContext(ctx).Warn("pdf cache write failed", "url", paper.SourceURL, "err", err)
		}
	}

	if err := p.write(paper, id, mdPath, body); err != nil {
		return p.fail(w, id, err)
	}

	if imported > 0 {
		fmt.Fprintf(w, "converted: %s (%d images)\n", id, imported)
	} else {
		fmt.Fprintf(w, "converted: %s\n", id)
	}
	return Outcome{Status: types.ConversionDone, Markdown: body, Path: mdPath, Images: imported}, nil
}

// ConvertBatch processes a list of papers, printing per-file status to w
// and returning a summary. It continues after individual failures.
func (p *Pipeline) ConvertBatch(ctx context.Context, papers []types.Paper, w io.Writer) BatchResult {
	var result BatchResult
	for _, paper := range papers {
		if ctx.Err() != nil {
			break
		}
		out, err := p.ConvertPaper(ctx, paper, w)
		if err != nil {
			result.Failed++
			continue
		}
		switch out.Status {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionCached:
			result.Cached++
		case ConversionNone:
			result.Skipped++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d cached, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Cached, result.Skipped, result.Failed, result.Total())
	return result
}

// ConvertPaths builds Paper records from raw PDF paths and delegates to
// ConvertBatch. Each path is turned into a minimal Paper with ID derived
// from the filename.
func (p *Pipeline) ConvertPaths(ctx context.Context, pdfPaths []string, w io.Writer) BatchResult {
	papers := make([]types.Paper, len(pdfPaths))
	for i, path := range pdfPaths {
		papers[i] = types.Paper{
			ID:      stem(path),
			PDFPath: path,
		}
	}
	return p.ConvertBatch(ctx, papers, w)
}

func (p *Pipeline) write(paper types.Paper, id, mdPath, body string) error {
	title := paper.Title
	if title == "" {
		title = FirstHeading(body)
	}
	content, err := AddFrontmatter(Frontmatter{
		PaperID:     id,
		Title:       title,
		SourceURL:   paper.SourceURL,
		SourcePDF:   paper.PDFPath,
		ConvertedAt: time.Now().UTC().Truncate(time.Second),
	}, body)
	if err != nil {
		return err
	}
	return os.WriteFile(mdPath, []byte(content), 0o644)
}

func (p *Pipeline) fail(w io.Writer, id string, err error) (Outcome, error) {
	fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
	return Outcome{Status: types.ConversionFailed}, fmt.Errorf("converting %s: %w", id, err)
}

func paperID(paper types.Paper) string {
	if paper.ID != "" {
		return paper.ID
	}
	return stem(paper.PDFPath)
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
