// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/smartpaper/internal/logging"
)

// PDFTextName is the registry name of the pure-Go text converter.
const PDFTextName = "pdftext"

// PDFTextConverter extracts the text layer of a PDF page by page and writes
// its embedded JPEG and PNG images into the output directory. It needs no
// external tools.
type PDFTextConverter struct{}

// Convert extracts every page's plain text, each preceded by a page marker
// comment and followed by references to the page's images. A failure to
// extract images is logged and the text is still returned.
func (PDFTextConverter) Convert(ctx context.Context, pdfPath, outDir string) (res Result, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing PDF %s: %v", pdfPath, r)
		}
	}()

	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return Result{}, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	images, err := extractImages(ctx, pdfPath, outDir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		logging.FromContext(ctx).Warn("image extraction failed, continuing with text only", "pdf", pdfPath, "err", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return Result{}, fmt.Errorf("reading page %d of %s: %w", i, pdfPath, err)
		}
		text = strings.TrimSpace(text)
		if text == "" && len(images[i]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "<!-- page %d -->\n\n", i)
		if text != "" {
			fmt.Fprintf(&b, "%s\n\n", text)
		}
		writeImageRefs(&b, i, images[i])
	}

	if b.Len() == 0 {
		return Result{}, fmt.Errorf("no extractable text or images in %s", pdfPath)
	}
	return Result{Markdown: b.String(), ImageDir: outDir}, nil
}
