// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/internal/store"
)

// DefaultLookupTimeout bounds a single Resolve call.
const DefaultLookupTimeout = 2 * time.Second

// Resolved is the outcome of looking up one reference. Payload is base64.
type Resolved struct {
	Payload string
	MIME    string
	Found   bool
}

// NotFound is the Resolved value for a miss.
var NotFound = Resolved{}

// Resolver maps a key within a document to an inline payload. It never
// fails: anything that prevents a lookup yields NotFound.
type Resolver interface {
	Resolve(ctx context.Context, doc, key string) Resolved
}

// ImageSource is the read side of an image store. A missing key is reported
// with an error wrapping store.ErrNotFound.
type ImageSource interface {
	GetImage(ctx context.Context, doc, key string) ([]byte, string, error)
}

// StoreResolver resolves references against an injected ImageSource.
type StoreResolver struct {
	source     ImageSource
	timeout    time.Duration
	candidates CandidateFunc
	logger     *log.Logger
}

// ResolverOption configures a StoreResolver.
type ResolverOption func(*StoreResolver)

// WithTimeout bounds each Resolve call. Non-positive keeps the default.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *StoreResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCandidates sets the key fallback chain.
func WithCandidates(c CandidateFunc) ResolverOption {
	return func(r *StoreResolver) { r.candidates = c }
}

// WithResolverLogger sets the logger for miss and failure events.
func WithResolverLogger(l *log.Logger) ResolverOption {
	return func(r *StoreResolver) { r.logger = l }
}

// NewStoreResolver creates a resolver reading from source.
func NewStoreResolver(source ImageSource, opts ...ResolverOption) *StoreResolver {
	r := &StoreResolver{
		source:     source,
		timeout:    DefaultLookupTimeout,
		candidates: ExactKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	return r
}

// Resolve looks key up in doc, walking the candidate chain.
func (r *StoreResolver) Resolve(ctx context.Context, doc, key string) Resolved {
	if key == "" || r.source == nil {
		return NotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, k := range r.candidates(key) {
		data, mimeType, err := r.source.GetImage(ctx, doc, k)
		if err == nil {
			if k != key {
				r.logger.Debug("image resolved through fallback key", "doc", doc, "key", key, "matched", k)
			}
			return Resolved{
				Payload: base64.StdEncoding.EncodeToString(data),
				MIME:    detectMIME(k, mimeType, data),
				Found:   true,
			}
		}
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if ctx.Err() != nil {
			r.logger.Warn("image lookup timed out", "doc", doc, "key", k, "timeout", r.timeout)
		} else {
			r.logger.Warn("image lookup failed", "doc", doc, "key", k, "error", err)
		}
		return NotFound
	}

	r.logger.Debug("image not found, keeping reference", "doc", doc, "key", key)
	return NotFound
}

// detectMIME prefers the stored type, then the extension, then sniffing.
func detectMIME(key, stored string, data []byte) string {
	if stored != "" {
		return stored
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(key))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return http.DetectContentType(data)
}
