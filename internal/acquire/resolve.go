// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidArxivURL is returned for URLs that do not name an arXiv paper.
var ErrInvalidArxivURL = errors.New("invalid arXiv URL")

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeURL
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// canonicalPDFBase is the PDF endpoint NormalizeArxivURL rewrites to.
const canonicalPDFBase = "https://arxiv.org/pdf/"

// Base URLs for downloads and metadata. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivPDFBase = canonicalPDFBase
	arxivAPIBase = "https://export.arxiv.org/api/query"
)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// arxivURLPattern matches abstract and PDF page URLs. Group 2 is the ID,
// group 3 the optional version.
var arxivURLPattern = regexp.MustCompile(`^https?://arxiv\.org/(abs|pdf)/(\d+\.\d+)(v\d+)?`)

// NormalizeArxivURL turns an arXiv abstract or PDF URL into the canonical
// PDF download URL, keeping an explicit version:
//
//	https://arxiv.org/abs/2310.06825   -> https://arxiv.org/pdf/2310.06825
//	http://arxiv.org/pdf/2305.12002v2  -> https://arxiv.org/pdf/2305.12002v2
func NormalizeArxivURL(rawURL string) (string, error) {
	id, err := ArxivID(rawURL)
	if err != nil {
		return "", err
	}
	return canonicalPDFBase + id, nil
}

// ArxivID extracts the versioned paper ID from an arXiv abstract or PDF URL.
func ArxivID(rawURL string) (string, error) {
	m := arxivURLPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidArxivURL, rawURL)
	}
	return m[2] + m[3], nil
}

// Classify determines the identifier type and returns the normalized form.
// For arXiv, it strips the optional "arXiv:" prefix; arXiv page URLs are
// reduced to their ID so they share a slug with the bare form.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	if id, err := ArxivID(identifier); err == nil {
		return TypeArxiv, id
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return TypeURL, identifier
	}

	return TypeUnknown, identifier
}

// Slug returns a filesystem-safe filename stem for the identifier. It is
// also the document ID images are stored under.
func Slug(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return normalized
	case TypeURL:
		u, err := url.Parse(normalized)
		if err != nil {
			return urlHashSlug(normalized)
		}
		base := strings.TrimSuffix(filepath.Base(u.Path), filepath.Ext(u.Path))
		if base == "" || base == "." || base == "/" {
			return urlHashSlug(normalized)
		}
		return base
	default:
		return "unknown"
	}
}

// PDFURL returns the download URL for the identifier. For arXiv, this is
// the arxiv.org PDF endpoint. For direct URLs, it returns as-is.
func PDFURL(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return arxivPDFBase + normalized
	case TypeURL:
		return normalized
	default:
		return ""
	}
}

func urlHashSlug(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("url-%x", h[:8])
}
