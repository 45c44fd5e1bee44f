// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rewrite replaces Markdown image references in a streamed model
// answer with inline data URIs while the answer is still arriving.
//
// Fragments arrive with arbitrary boundaries, so a reference such as
// ![fig1](images/plot_12.png) may start in one fragment and close in a later
// one. Process scans each fragment once, holding a candidate reference in
// State until it either closes (and is resolved exactly once), grows past
// the buffer cap (and is released verbatim), or the stream ends (Flush).
package rewrite

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/smartpaper/internal/logging"
)

// DefaultMaxBuffer is the largest candidate reference, in characters, held
// before it is released as plain text.
const DefaultMaxBuffer = 500

// State carries a stream's partial reference between Process calls. The
// zero value is the initial state. A State belongs to exactly one stream
// and must not be used from two goroutines at once. Process copies the held
// buffer before extending it, so an earlier State stays valid after use.
type State struct {
	buf        []byte
	collecting bool

	// chars counts the UTF-8 characters in buf; the cap applies to it.
	chars int

	// pendingBang is set when a fragment ends in '!' while idle; the next
	// fragment decides whether it opens a reference.
	pendingBang bool

	// linkAt is the offset of the first "](" in buf. Zero means none seen:
	// buf always starts with "![", so the pair can never sit at 0 or 1.
	linkAt int

	// multiline records a newline inside the candidate. The reference
	// grammar is single-line, so such a candidate can only end by overflow.
	multiline bool
}

// Buffer returns the held candidate text.
func (s State) Buffer() string { return string(s.buf) }

// Collecting reports whether a candidate reference is in progress.
func (s State) Collecting() bool { return s.collecting }

// Pending reports whether output is held back: a candidate reference or a
// trailing '!' awaiting its next byte.
func (s State) Pending() bool { return s.collecting || s.pendingBang }

func (s *State) open() {
	s.buf = append(make([]byte, 0, 64), '!')
	s.chars = 1
	s.collecting = true
	s.linkAt = 0
	s.multiline = false
}

func (s *State) reset() {
	s.buf = nil
	s.chars = 0
	s.collecting = false
	s.linkAt = 0
	s.multiline = false
}

// Rewriter substitutes resolved image references in streamed text.
// A Rewriter holds no per-stream state and may be shared by any number of
// concurrent streams, each with its own State.
type Rewriter struct {
	resolver  Resolver
	deriveKey KeyDeriver
	format    Formatter
	maxBuffer int
	logger    *log.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithKeyDeriver sets how a reference target becomes a lookup key.
func WithKeyDeriver(k KeyDeriver) Option {
	return func(r *Rewriter) { r.deriveKey = k }
}

// WithFormatter sets the inline representation of resolved references.
func WithFormatter(f Formatter) Option {
	return func(r *Rewriter) { r.format = f }
}

// WithMaxBuffer sets the candidate buffer cap. Non-positive values keep
// DefaultMaxBuffer.
func WithMaxBuffer(n int) Option {
	return func(r *Rewriter) {
		if n > 0 {
			r.maxBuffer = n
		}
	}
}

// WithLogger sets the logger used for overflow diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(r *Rewriter) { r.logger = l }
}

// New creates a Rewriter that resolves references through resolver.
func New(resolver Resolver, opts ...Option) *Rewriter {
	r := &Rewriter{
		resolver:  resolver,
		deriveKey: BasenameKey,
		format:    MarkdownDataURI,
		maxBuffer: DefaultMaxBuffer,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	return r
}

// Process rewrites one fragment. It returns the text that can be shown now
// and the state to pass with the next fragment of the same stream. doc names
// the image set references are resolved against.
func (r *Rewriter) Process(ctx context.Context, fragment string, st State, doc string) (string, State) {
	if fragment == "" {
		return "", st
	}

	var out strings.Builder
	out.Grow(len(fragment))

	if st.collecting {
		st.buf = append(make([]byte, 0, len(st.buf)+len(fragment)), st.buf...)
	}

	if st.pendingBang {
		st.pendingBang = false
		if fragment[0] == '[' {
			st.open()
		} else {
			out.WriteByte('!')
		}
	}

	for i := 0; i < len(fragment); i++ {
		c := fragment[i]

		if st.collecting {
			r.collect(ctx, &out, &st, c, doc)
			continue
		}

		if c == '!' {
			if i+1 == len(fragment) {
				st.pendingBang = true
				continue
			}
			if fragment[i+1] == '[' {
				st.open()
				continue
			}
		}
		out.WriteByte(c)
	}

	return out.String(), st
}

// Flush ends a stream: any held text is returned verbatim and the state is
// reset.
func (r *Rewriter) Flush(st State) (string, State) {
	var out strings.Builder
	out.Write(st.buf)
	if st.pendingBang {
		out.WriteByte('!')
	}
	return out.String(), State{}
}

// RewriteAll rewrites a complete document in one pass.
func (r *Rewriter) RewriteAll(ctx context.Context, text, doc string) string {
	out, st := r.Process(ctx, text, State{}, doc)
	tail, _ := r.Flush(st)
	return out + tail
}

// collect appends c to the candidate and settles it when it closes or
// overflows. Only the first byte of a UTF-8 sequence counts toward the cap.
func (r *Rewriter) collect(ctx context.Context, out *strings.Builder, st *State, c byte, doc string) {
	st.buf = append(st.buf, c)
	n := len(st.buf)
	if c&0xC0 != 0x80 {
		st.chars++
	}

	switch c {
	case '\n':
		st.multiline = true
	case '(':
		if st.linkAt == 0 && n >= 4 && st.buf[n-2] == ']' {
			st.linkAt = n - 2
		}
	case ')':
		if st.linkAt > 0 && !st.multiline {
			r.substitute(ctx, out, st, doc)
			return
		}
	}

	if st.chars > r.maxBuffer {
		r.logger.Debug("releasing unterminated image reference", "doc", doc, "chars", st.chars, "bytes", n)
		out.Write(st.buf)
		st.reset()
	}
}

// substitute resolves the closed reference in st.buf and writes either the
// inline form or the original text.
func (r *Rewriter) substitute(ctx context.Context, out *strings.Builder, st *State, doc string) {
	raw := st.buf
	alt := strings.TrimSpace(string(raw[2:st.linkAt]))
	target := strings.TrimSpace(string(raw[st.linkAt+2 : len(raw)-1]))

	key := r.deriveKey(target)
	ref := NotFound
	if key != "" {
		ref = r.resolver.Resolve(ctx, doc, key)
	}

	if ref.Found {
		out.WriteString(r.format(alt, ref))
	} else {
		out.Write(raw)
	}
	st.reset()
}
