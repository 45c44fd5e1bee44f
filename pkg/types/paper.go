// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates the state of PDF-to-Markdown conversion for a paper.
type ConversionStatus string

const (
	ConversionNone   ConversionStatus = "none"
	ConversionDone   ConversionStatus = "converted"
	ConversionCached ConversionStatus = "cached"
	ConversionFailed ConversionStatus = "failed"
)

// Paper holds metadata and file paths for an acquired paper.
type Paper struct {
	// ID is a slug derived from the paper identifier (e.g. "2305.12002").
	// It also names the paper's image set in the image store.
	ID string `json:"id" yaml:"id"`

	// SourceURL is the URL from which the paper was downloaded. It keys the
	// PDF cache.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// PDFPath is the local filesystem path to the downloaded PDF.
	PDFPath string `json:"pdf_path" yaml:"pdf_path"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date" yaml:"date"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Source identifies where the PDF came from ("arxiv" or "url").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// ConversionStatus tracks whether the PDF has been converted to Markdown.
	ConversionStatus ConversionStatus `json:"conversion_status" yaml:"conversion_status"`
}
