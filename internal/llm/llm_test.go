// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smartpaper/internal/httputil"
	"github.com/pdiddy/smartpaper/pkg/types"
)

const claudeStream = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1"}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

: keep-alive

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Look at ![fig1](images/plot_12."}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"png) for details."}}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"}}

event: message_stop
data: {"type":"message_stop"}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"after stop"}}

`

const openAIStream = `data: {"choices":[{"delta":{"role":"assistant"}}]}

data: {"choices":[{"delta":{"content":"注意"}}]}

data: {"choices":[{"delta":{"content":"力"}}]}

data: [DONE]

`

func collect(t *testing.T, s Streamer) ([]string, error) {
	t.Helper()
	var got []string
	err := s.Stream(context.Background(), "prompt text", func(f string) error {
		got = append(got, f)
		return nil
	})
	return got, err
}

func TestClaudeStreamer(t *testing.T) {
	var gotReq claudeRequest
	var gotHeaders http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, claudeStream)
	}))
	defer ts.Close()

	s := &ClaudeStreamer{APIKey: "sk-test", Model: "claude-test", BaseURL: ts.URL, Client: ts.Client()}
	got, err := collect(t, s)
	require.NoError(t, err)

	assert.Equal(t, []string{"Look at ![fig1](images/plot_12.", "png) for details."}, got)
	assert.Equal(t, "sk-test", gotHeaders.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, gotHeaders.Get("anthropic-version"))
	assert.True(t, gotReq.Stream)
	assert.Equal(t, "claude-test", gotReq.Model)
	assert.Equal(t, defaultMaxTokens, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "prompt text", gotReq.Messages[0].Content)
}

func TestClaudeStreamer_DefaultEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"ok\"}}\n\n")
	}))
	defer ts.Close()

	orig := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = orig }()

	got, err := collect(t, &ClaudeStreamer{APIKey: "k", Model: "m", Client: ts.Client()})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got)
}

func TestClaudeStreamer_ErrorEvent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer ts.Close()

	_, err := collect(t, &ClaudeStreamer{APIKey: "k", BaseURL: ts.URL, Client: ts.Client()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
}

func TestClaudeStreamer_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid x-api-key"}`)
	}))
	defer ts.Close()

	_, err := collect(t, &ClaudeStreamer{APIKey: "bad", BaseURL: ts.URL, Client: ts.Client()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid x-api-key")
}

func TestClaudeStreamer_RetriesRateLimit(t *testing.T) {
	orig := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	defer func() { httputil.RetryBaseDelay = orig }()

	var calls atomic.Int32
	var lastBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody = string(body)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, claudeStream)
	}))
	defer ts.Close()

	got, err := collect(t, &ClaudeStreamer{APIKey: "k", BaseURL: ts.URL, MaxRetries: 2, Client: ts.Client()})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, lastBody, "prompt text", "the retried request carries the body")
}

func TestClaudeStreamer_CallbackErrorStops(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, claudeStream)
	}))
	defer ts.Close()

	stop := errors.New("client went away")
	var n int
	err := (&ClaudeStreamer{APIKey: "k", BaseURL: ts.URL, Client: ts.Client()}).Stream(context.Background(), "p", func(string) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestOpenAIStreamer(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq openAIRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		fmt.Fprint(w, openAIStream)
	}))
	defer ts.Close()

	s := &OpenAIStreamer{APIKey: "sk-oa", Model: "gpt-test", BaseURL: ts.URL + "/v1/", Client: ts.Client()}
	got, err := collect(t, s)
	require.NoError(t, err)

	assert.Equal(t, []string{"注意", "力"}, got)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-oa", gotAuth)
	assert.True(t, gotReq.Stream)
	assert.Equal(t, "gpt-test", gotReq.Model)
}

func TestOpenAIStreamer_StreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"context length exceeded\"}}\n\n")
	}))
	defer ts.Close()

	_, err := collect(t, &OpenAIStreamer{APIKey: "k", BaseURL: ts.URL, Client: ts.Client()})
	assert.ErrorContains(t, err, "context length exceeded")
}

func TestReadEvents(t *testing.T) {
	in := "event: a\ndata: line1\ndata: line2\n\n: comment\n\ndata:no-space\n\ndata: trailing"
	var got []string
	err := readEvents(strings.NewReader(in), func(event, data string) (bool, error) {
		got = append(got, event+"|"+data)
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a|line1\nline2", "|no-space", "|trailing"}, got)
}

func TestNew(t *testing.T) {
	s, err := New(types.AIConfig{APIKey: "k"}, nil)
	require.NoError(t, err)
	c, ok := s.(*ClaudeStreamer)
	require.True(t, ok)
	assert.Equal(t, DefaultClaudeModel, c.Model)
	assert.Equal(t, defaultMaxTokens, c.MaxTokens)

	s, err = New(types.AIConfig{Provider: types.ProviderOpenAI, APIKey: "k", Model: "deepseek-chat", BaseURL: "https://api.deepseek.com/v1"}, nil)
	require.NoError(t, err)
	o, ok := s.(*OpenAIStreamer)
	require.True(t, ok)
	assert.Equal(t, "deepseek-chat", o.Model)
	assert.Equal(t, "https://api.deepseek.com/v1", o.BaseURL)

	_, err = New(types.AIConfig{Provider: types.ProviderClaude}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(types.AIConfig{Provider: "gemini", APIKey: "k"}, nil)
	assert.ErrorContains(t, err, "unknown AI provider")
}

func TestStreamFunc(t *testing.T) {
	var s Streamer = StreamFunc(func(_ context.Context, prompt string, fn func(string) error) error {
		return fn(strings.ToUpper(prompt))
	})
	got, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"PROMPT TEXT"}, got)
}
