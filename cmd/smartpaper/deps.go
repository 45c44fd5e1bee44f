// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/smartpaper/internal/analyze"
	"github.com/pdiddy/smartpaper/internal/convert"
	"github.com/pdiddy/smartpaper/internal/llm"
	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/internal/prompt"
	"github.com/pdiddy/smartpaper/internal/rewrite"
	"github.com/pdiddy/smartpaper/internal/store"
	"github.com/pdiddy/smartpaper/pkg/types"
)

func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// newPipeline builds the conversion pipeline over st, which serves as both
// PDF cache and image sink.
func newPipeline(cfg types.Config, st *store.Store) (*convert.Pipeline, error) {
	conv, err := convert.New(string(cfg.Conversion.Converter), convert.Options{})
	if err != nil {
		return nil, err
	}
	return convert.NewPipeline(conv, cfg.Conversion, st, st, cfg.Store.ImportWorkers), nil
}

// newRewriter builds the image reference rewriter reading from src.
func newRewriter(cfg types.RewriteConfig, src rewrite.ImageSource) (*rewrite.Rewriter, error) {
	logger := logging.Default()

	resolverOpts := []rewrite.ResolverOption{
		rewrite.WithTimeout(cfg.LookupTimeout),
		rewrite.WithResolverLogger(logger),
	}
	switch cfg.KeyMatch {
	case "", types.KeyMatchExact:
	case types.KeyMatchPageImage:
		resolverOpts = append(resolverOpts, rewrite.WithCandidates(rewrite.PageImageCandidates))
	default:
		return nil, fmt.Errorf("unknown rewrite.key_match %q (use %q or %q)", cfg.KeyMatch, types.KeyMatchExact, types.KeyMatchPageImage)
	}

	opts := []rewrite.Option{
		rewrite.WithMaxBuffer(cfg.MaxBuffer),
		rewrite.WithLogger(logger),
	}
	switch cfg.Format {
	case "", types.ImageMarkdown:
	case types.ImageHTML:
		opts = append(opts, rewrite.WithFormatter(rewrite.HTMLImage))
	default:
		return nil, fmt.Errorf("unknown rewrite.format %q (use %q or %q)", cfg.Format, types.ImageMarkdown, types.ImageHTML)
	}

	return rewrite.New(rewrite.NewStoreResolver(src, resolverOpts...), opts...), nil
}

// app bundles what analyze and serve share. Close releases the store.
type app struct {
	store    *store.Store
	prompts  *prompt.Library
	analyzer *analyze.Analyzer
}

func (a *app) Close() error { return a.store.Close() }

// newApp opens the store and wires the analyzer. progress receives
// acquisition and conversion status lines.
func newApp(cfg types.Config, progress io.Writer) (*app, error) {
	client := newHTTPClient(cfg.Acquisition.HTTPConfig)

	model, err := llm.New(cfg.AI, &http.Client{})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}

	pipeline, err := newPipeline(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	rw, err := newRewriter(cfg.Rewrite, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	prompts := prompt.Load(cfg.Prompts)
	return &app{
		store:   st,
		prompts: prompts,
		analyzer: &analyze.Analyzer{
			Acquirer:      &analyze.HTTPAcquirer{Client: client, Config: cfg.Acquisition, Progress: progress},
			Pipeline:      pipeline,
			Prompts:       prompts,
			Model:         model,
			Rewriter:      rw,
			Images:        st,
			DefaultPrompt: cfg.Prompts.Default,
			OutputDir:     cfg.Server.OutputDir,
			Progress:      progress,
		},
	}, nil
}
