// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/smartpaper/internal/httputil"
)

// openAIBaseURL is the default API root; /chat/completions is appended.
var openAIBaseURL = "https://api.openai.com/v1"

// OpenAIStreamer streams answers from any OpenAI-compatible chat
// completions endpoint.
type OpenAIStreamer struct {
	APIKey     string
	Model      string
	MaxTokens  int
	MaxRetries int

	// BaseURL is the API root, e.g. "https://api.deepseek.com/v1".
	BaseURL string
	Client  *http.Client
}

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Stream    bool            `json:"stream"`
	Messages  []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Stream sends prompt as a single user message and forwards each delta's
// content as a fragment.
func (o *OpenAIStreamer) Stream(ctx context.Context, prompt string, fn func(string) error) error {
	body, err := json.Marshal(openAIRequest{
		Model:     o.Model,
		MaxTokens: o.MaxTokens,
		Stream:    true,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	base := openAIBaseURL
	if o.BaseURL != "" {
		base = o.BaseURL
	}
	endpoint := strings.TrimRight(base, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries)
	if err != nil {
		return fmt.Errorf("calling chat completions API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("chat completions", resp)
	}

	return readEvents(resp.Body, func(_, data string) (bool, error) {
		if data == "[DONE]" {
			return true, nil
		}
		var chunk openAIChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return false, fmt.Errorf("decoding completion chunk: %w", err)
		}
		if chunk.Error != nil {
			return false, fmt.Errorf("chat completions stream error: %s", chunk.Error.Message)
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content != "" {
				if err := fn(c.Delta.Content); err != nil {
					return false, err
				}
			}
		}
		return false, nil
	})
}
