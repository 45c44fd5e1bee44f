// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/smartpaper/internal/httputil"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// ClaudeStreamer streams answers from the Claude Messages API.
type ClaudeStreamer struct {
	APIKey     string
	Model      string
	MaxTokens  int
	MaxRetries int

	// BaseURL overrides the messages endpoint.
	BaseURL string
	Client  *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeEvent covers the stream events this client reads.
type claudeEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream sends prompt as a single user message and forwards every
// text_delta as a fragment.
func (c *ClaudeStreamer) Stream(ctx context.Context, prompt string, fn func(string) error) error {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Stream:    true,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := claudeAPIURL
	if c.BaseURL != "" {
		endpoint = c.BaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("Claude", resp)
	}

	return readEvents(resp.Body, func(_, data string) (bool, error) {
		var ev claudeEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return false, fmt.Errorf("decoding Claude event: %w", err)
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				return false, fn(ev.Delta.Text)
			}
		case "message_stop":
			return true, nil
		case "error":
			return false, fmt.Errorf("Claude stream error (%s): %s", ev.Error.Type, ev.Error.Message)
		}
		return false, nil
	})
}
