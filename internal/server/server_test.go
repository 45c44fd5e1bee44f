// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smartpaper/internal/analyze"
	"github.com/pdiddy/smartpaper/internal/prompt"
	"github.com/pdiddy/smartpaper/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	got    []analyze.Request
	events []analyze.Event
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analyze.Request, emit func(analyze.Event) error) error {
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()
	for _, ev := range f.events {
		if err := emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAnalyzer) requests() []analyze.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]analyze.Request(nil), f.got...)
}

type fakePrompts map[string][]prompt.Summary

func (f fakePrompts) List(version string) ([]prompt.Summary, error) {
	v, err := prompt.ParseVersion(version)
	if err != nil {
		return nil, err
	}
	return f[string(v)], nil
}

func newTestServer(t *testing.T, a Analyzer, cfg types.ServerConfig) *httptest.Server {
	t.Helper()
	prompts := fakePrompts{
		"text": {{Name: "summary", Description: "Short summary"}, {Name: "yuanbao", Description: "Full read"}},
	}
	ts := httptest.NewServer(New(a, prompts, cfg, nil).Routes())
	t.Cleanup(ts.Close)
	return ts
}

func decodeEvents(t *testing.T, r io.Reader) []analyze.Event {
	t.Helper()
	var events []analyze.Event
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var ev analyze.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), "line %q", sc.Text())
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{}, types.ServerConfig{})

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestExamples(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{}, types.ServerConfig{})

	resp, err := http.Get(ts.URL + "/api/examples")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Examples []string `json:"examples"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, Examples, body.Examples)
}

func TestPrompts(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{}, types.ServerConfig{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantNames  []string
	}{
		{name: "default version", query: "", wantStatus: http.StatusOK, wantNames: []string{"summary", "yuanbao"}},
		{name: "text version", query: "?version=text", wantStatus: http.StatusOK, wantNames: []string{"summary", "yuanbao"}},
		{name: "empty image version", query: "?version=image_text", wantStatus: http.StatusOK, wantNames: []string{}},
		{name: "unknown version", query: "?version=audio", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/prompts" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Prompts []prompt.Summary `json:"prompts"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			names := []string{}
			for _, p := range body.Prompts {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestAnalyze_StreamsEvents(t *testing.T) {
	fa := &fakeAnalyzer{events: []analyze.Event{
		analyze.Chunk("Look at "),
		analyze.Chunk("![fig1](data:image/png;base64,QUJD)"),
		analyze.Done("outputs/analysis_s1_2305.12002_prompt_summary.md"),
	}}
	ts := newTestServer(t, fa, types.ServerConfig{})

	body := `{"url":"https://arxiv.org/abs/2305.12002","prompt":"summary","session":"s1"}`
	resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))
	assert.Equal(t, "s1", resp.Header.Get("X-Session-Id"))

	events := decodeEvents(t, resp.Body)
	require.Len(t, events, 3)
	assert.Equal(t, analyze.EventChunk, events[0].Type)
	assert.Equal(t, "Look at ", events[0].Content)
	assert.Equal(t, "![fig1](data:image/png;base64,QUJD)", events[1].Content)
	assert.Equal(t, analyze.EventFinal, events[2].Type)
	require.NotNil(t, events[2].Success)
	assert.True(t, *events[2].Success)
	assert.Equal(t, "outputs/analysis_s1_2305.12002_prompt_summary.md", events[2].FilePath)

	reqs := fa.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "summary", reqs[0].Prompt)
	assert.Equal(t, "s1", reqs[0].Session)
}

func TestAnalyze_AssignsSession(t *testing.T) {
	fa := &fakeAnalyzer{events: []analyze.Event{analyze.Failed(errors.New("boom"))}}
	ts := newTestServer(t, fa, types.ServerConfig{})

	resp, err := http.Post(ts.URL+"/api/analyze", "application/json",
		strings.NewReader(`{"url":"https://arxiv.org/pdf/2303.08774"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	events := decodeEvents(t, resp.Body)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Success)
	assert.False(t, *events[0].Success)
	assert.Equal(t, "boom", events[0].Error)

	reqs := fa.requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Session, 36)
	assert.Equal(t, reqs[0].Session, resp.Header.Get("X-Session-Id"))
}

func TestAnalyze_RejectsBadRequests(t *testing.T) {
	fa := &fakeAnalyzer{}
	ts := newTestServer(t, fa, types.ServerConfig{})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed json", body: `{"url":`},
		{name: "not arxiv", body: `{"url":"https://example.com/paper.pdf"}`},
		{name: "missing url", body: `{"prompt":"summary"}`},
		{name: "bad version", body: `{"url":"https://arxiv.org/abs/2310.06825","version":"audio"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, fa.requests())
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{}, types.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
