// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pdiddy/smartpaper/internal/container"
	"github.com/pdiddy/smartpaper/internal/logging"
)

// MarkitdownName is the registry name of the container-backed converter.
const MarkitdownName = "markitdown"

const imageMarkitdown = "markitdown:latest"

// markitdownArgs tells the tool that stdin holds a PDF.
var markitdownArgs = []string{"--extension", "pdf"}

// MarkitdownConverter converts PDFs by piping them through the markitdown
// container image. It depends on a container.Runtime (docker or podman)
// injected at construction time.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter creates a converter that uses the given container
// runtime to run the markitdown image. It verifies that the markitdown image
// exists locally before returning.
func NewMarkitdownConverter(rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

// Convert reads the PDF at pdfPath, pipes it through the markitdown container
// and returns the Markdown text. The PDF's embedded images are written to
// outDir and referenced at the end of the text, grouped by page.
func (m *MarkitdownConverter) Convert(ctx context.Context, pdfPath, outDir string) (Result, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return Result{}, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating image directory %s: %w", outDir, err)
	}

	spec := container.RunSpec{
		Image: imageMarkitdown,
		Args:  markitdownArgs,
	}

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, spec, f, &out); err != nil {
		return Result{}, fmt.Errorf("converting %s with markitdown: %w", pdfPath, err)
	}

	if out.Len() == 0 {
		return Result{}, fmt.Errorf("markitdown produced empty output for %s", pdfPath)
	}

	md := out.String()
	images, err := extractImages(ctx, pdfPath, outDir)
	if err != nil {
		logging.FromContext(ctx).Warn("image extraction failed, continuing with text only", "pdf", pdfPath, "err", err)
	}
	if len(images) > 0 {
		var b strings.Builder
		b.WriteString(strings.TrimRight(md, "\n"))
		b.WriteString("\n\n")
		for _, p := range slices.Sorted(maps.Keys(images)) {
			writeImageRefs(&b, p, images[p])
		}
		md = b.String()
	}

	return Result{Markdown: md, ImageDir: outDir}, nil
}
