// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze runs one paper analysis end to end: resolve the arXiv
// URL, obtain the paper's Markdown, render a prompt, stream the model's
// answer through the image reference rewriter, and write the result to
// the outputs directory while emitting it as events.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pdiddy/smartpaper/internal/acquire"
	"github.com/pdiddy/smartpaper/internal/convert"
	"github.com/pdiddy/smartpaper/internal/llm"
	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/internal/prompt"
	"github.com/pdiddy/smartpaper/internal/rewrite"
	"github.com/pdiddy/smartpaper/pkg/types"
)

// EventType distinguishes streamed text from the closing event.
type EventType string

const (
	EventChunk EventType = "chunk"
	EventFinal EventType = "final"
)

// Event is one message of an analysis stream. Chunk events carry
// Content; the single final event carries Success and either FilePath or
// Error.
type Event struct {
	Type     EventType `json:"type"`
	Content  string    `json:"content,omitempty"`
	Success  *bool     `json:"success,omitempty"`
	FilePath string    `json:"file_path,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Chunk returns a chunk event.
func Chunk(content string) Event { return Event{Type: EventChunk, Content: content} }

// Done returns a successful final event.
func Done(path string) Event {
	ok := true
	return Event{Type: EventFinal, Success: &ok, FilePath: path}
}

// Failed returns an unsuccessful final event.
func Failed(err error) Event {
	ok := false
	return Event{Type: EventFinal, Success: &ok, Error: err.Error()}
}

// Request names the paper and prompt of one analysis.
type Request struct {
	URL     string `json:"url"`
	Prompt  string `json:"prompt,omitempty"`
	Version string `json:"version,omitempty"`
	Session string `json:"session,omitempty"`
}

// Acquirer downloads a paper and returns its record.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (*types.Paper, error)
}

// ImageLister reports the figure keys stored for a document.
type ImageLister interface {
	ImageKeys(ctx context.Context, doc string) ([]string, error)
}

// HTTPAcquirer acquires papers with acquire.AcquirePaper.
type HTTPAcquirer struct {
	Client   *http.Client
	Config   types.AcquisitionConfig
	Progress io.Writer
}

// Acquire downloads url unless the PDF is already on disk.
func (a *HTTPAcquirer) Acquire(ctx context.Context, url string) (*types.Paper, error) {
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	w := a.Progress
	if w == nil {
		w = io.Discard
	}
	paper, _, err := acquire.AcquirePaper(ctx, client, url, a.Config, w)
	return paper, err
}

// Analyzer holds the shared, stream-independent parts of an analysis. It
// is safe for concurrent use; each Analyze call owns its rewrite state.
type Analyzer struct {
	Acquirer Acquirer
	Pipeline *convert.Pipeline
	Prompts  *prompt.Library
	Model    llm.Streamer
	Rewriter *rewrite.Rewriter

	// Images, when set, lets image_text prompts list the available figures.
	Images ImageLister

	// DefaultPrompt replaces an empty Request.Prompt; prompt.DefaultPrompt
	// when unset.
	DefaultPrompt string

	// OutputDir receives analysis_<session>_<id>_prompt_<name>.md files.
	OutputDir string

	// Progress receives acquisition and conversion status lines.
	Progress io.Writer
}

const (
	defaultSession   = "default"
	defaultOutputDir = "outputs"
)

// OutputPath returns the file an analysis is written to.
func (a *Analyzer) OutputPath(session, paperID, promptName string) string {
	dir := a.OutputDir
	if dir == "" {
		dir = defaultOutputDir
	}
	name := fmt.Sprintf("analysis_%s_%s_prompt_%s.md", safeName(session), safeName(paperID), safeName(promptName))
	return filepath.Join(dir, name)
}

// Analyze runs req and reports through emit: zero or more chunk events,
// then exactly one final event. The returned error repeats the failure of
// an unsuccessful final event, or reports that emit itself failed.
func (a *Analyzer) Analyze(ctx context.Context, req Request, emit func(Event) error) error {
	err := a.run(ctx, req, emit)
	var emitErr *emitError
	if errors.As(err, &emitErr) {
		return emitErr.err
	}
	if err != nil {
		logging.FromContext(ctx).Error("analysis failed", "url", req.URL, "err", err)
		if ferr := emit(Failed(err)); ferr != nil {
			return ferr
		}
		return err
	}
	return nil
}

// emitError marks failures of the caller's emit function, which end the
// analysis without a final event.
type emitError struct{ err error }

func (e *emitError) Error() string { return e.err.Error() }

func (a *Analyzer) run(ctx context.Context, req Request, emit func(Event) error) error {
	logger := logging.FromContext(ctx)

	pdfURL, err := acquire.NormalizeArxivURL(req.URL)
	if err != nil {
		return err
	}
	paperID, err := acquire.ArxivID(pdfURL)
	if err != nil {
		return err
	}

	version, err := prompt.ParseVersion(req.Version)
	if err != nil {
		return err
	}
	promptName := req.Prompt
	if promptName == "" {
		promptName = a.DefaultPrompt
	}
	if promptName == "" {
		promptName = prompt.DefaultPrompt
	}
	session := req.Session
	if session == "" {
		session = defaultSession
	}
	logger.Info("analyzing paper", "url", pdfURL, "prompt", promptName, "version", version, "session", session)

	markdown, title, err := a.markdown(ctx, pdfURL)
	if err != nil {
		return err
	}

	data := prompt.Data{Content: markdown, Title: title, ID: paperID}
	if version == prompt.VersionImageText && a.Images != nil {
		keys, err := a.Images.ImageKeys(ctx, paperID)
		if err != nil {
			logger.Warn("listing images failed", "doc", paperID, "err", err)
		}
		data.Images = keys
	}
	text, err := a.Prompts.Render(promptName, string(version), data)
	if err != nil {
		return err
	}

	outPath := a.OutputPath(session, paperID, promptName)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	var (
		st        rewrite.State
		fragments int
		written   int
	)
	forward := func(s string) error {
		if s == "" {
			return nil
		}
		if _, err := io.WriteString(f, s); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		written += len(s)
		if err := emit(Chunk(s)); err != nil {
			return &emitError{err}
		}
		return nil
	}

	streamErr := a.Model.Stream(ctx, text, func(fragment string) error {
		fragments++
		out, next := a.Rewriter.Process(ctx, fragment, st, paperID)
		st = next
		return forward(out)
	})

	var emitErr *emitError
	if errors.As(streamErr, &emitErr) {
		return emitErr
	}
	tail, _ := a.Rewriter.Flush(st)
	if err := forward(tail); err != nil && streamErr == nil {
		streamErr = err
	}
	if streamErr != nil {
		return streamErr
	}

	logger.Info("analysis complete", "fragments", fragments, "bytes", written, "file", outPath)
	if err := emit(Done(outPath)); err != nil {
		return &emitError{err}
	}
	return nil
}

// markdown returns the paper body and title, from the PDF cache when
// possible, otherwise by acquiring and converting the paper.
func (a *Analyzer) markdown(ctx context.Context, pdfURL string) (string, string, error) {
	if md, ok := a.Pipeline.Cached(ctx, pdfURL); ok {
		logging.FromContext(ctx).Debug("pdf cache hit", "url", pdfURL)
		return md, convert.FirstHeading(md), nil
	}

	paper, err := a.Acquirer.Acquire(ctx, pdfURL)
	if err != nil {
		return "", "", fmt.Errorf("acquiring %s: %w", pdfURL, err)
	}

	w := a.Progress
	if w == nil {
		w = io.Discard
	}
	out, err := a.Pipeline.ConvertPaper(ctx, *paper, w)
	if err != nil {
		return "", "", err
	}
	title := paper.Title
	if title == "" {
		title = convert.FirstHeading(out.Markdown)
	}
	return out.Markdown, title, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeName keeps a file name component free of separators.
func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
