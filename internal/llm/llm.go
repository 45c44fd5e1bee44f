// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm streams completions from a language model API.
//
// A Streamer delivers the answer as text fragments in arrival order. The
// fragments have arbitrary boundaries: a word, a Markdown construct, or a
// multi-byte character may be split across two of them.
package llm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/smartpaper/pkg/types"
)

// ErrMissingAPIKey is returned when a provider is configured without a key.
var ErrMissingAPIKey = errors.New("missing API key")

// Streamer sends one prompt and calls fn with every fragment of the answer.
// Returning an error from fn stops the stream and Stream returns it.
type Streamer interface {
	Stream(ctx context.Context, prompt string, fn func(fragment string) error) error
}

// StreamFunc adapts a function to the Streamer interface.
type StreamFunc func(ctx context.Context, prompt string, fn func(string) error) error

// Stream calls f.
func (f StreamFunc) Stream(ctx context.Context, prompt string, fn func(string) error) error {
	return f(ctx, prompt, fn)
}

const defaultMaxTokens = 4096

// Default models per provider.
const (
	DefaultClaudeModel = "claude-sonnet-4-5-20250929"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// New builds the Streamer for cfg.Provider. An empty provider selects Claude.
func New(cfg types.AIConfig, client *http.Client) (Streamer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %q", ErrMissingAPIKey, cfg.Provider)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	switch cfg.Provider {
	case "", types.ProviderClaude:
		if cfg.Model == "" {
			cfg.Model = DefaultClaudeModel
		}
		return &ClaudeStreamer{APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens, MaxRetries: cfg.MaxRetries, BaseURL: cfg.BaseURL, Client: client}, nil
	case types.ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
		return &OpenAIStreamer{APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens, MaxRetries: cfg.MaxRetries, BaseURL: cfg.BaseURL, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// readEvents calls fn with the data payload of every server-sent event in
// r. Multi-line data fields are joined with newlines.
func readEvents(r io.Reader, fn func(event, data string) (done bool, err error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var event string
	var data []string
	dispatch := func() (bool, error) {
		if len(data) == 0 {
			event = ""
			return false, nil
		}
		done, err := fn(event, strings.Join(data, "\n"))
		event, data = "", data[:0]
		return done, err
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if done, err := dispatch(); done || err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading event stream: %w", err)
	}
	_, err := dispatch()
	return err
}

// apiError reads a non-200 response into an error.
func apiError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s API returned %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
}
