// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// embeddedImage is one raster image pulled out of a PDF page.
type embeddedImage struct {
	page int
	obj  int
	ext  string
	data []byte
}

// imageExt maps a pdfcpu file type to the extension written to disk. Only
// formats the image store imports are kept.
func imageExt(fileType string) (string, bool) {
	switch strings.ToLower(fileType) {
	case "jpg", "jpeg":
		return "jpg", true
	case "png":
		return "png", true
	}
	return "", false
}

// extractImages writes the JPEG and PNG images embedded in the PDF at
// pdfPath into outDir as page<N>_img<M>.<ext> and returns the file names
// grouped by page number. Images on a page are numbered in object order.
func extractImages(ctx context.Context, pdfPath, outDir string) (map[int][]string, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var found []embeddedImage
	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext, ok := imageExt(img.FileType)
		if !ok {
			return nil
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("reading image object %d on page %d: %w", img.ObjNr, img.PageNr, err)
		}
		found = append(found, embeddedImage{page: img.PageNr, obj: img.ObjNr, ext: ext, data: data})
		return nil
	}
	if err := api.ExtractImages(f, nil, digest, conf); err != nil {
		return nil, fmt.Errorf("extracting images from %s: %w", pdfPath, err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	slices.SortFunc(found, func(a, b embeddedImage) int {
		return cmp.Or(cmp.Compare(a.page, b.page), cmp.Compare(a.obj, b.obj))
	})

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory %s: %w", outDir, err)
	}
	names := make(map[int][]string)
	for _, img := range found {
		name := fmt.Sprintf("page%d_img%d.%s", img.page, len(names[img.page])+1, img.ext)
		if err := os.WriteFile(filepath.Join(outDir, name), img.data, 0o644); err != nil {
			return nil, fmt.Errorf("writing image %s: %w", name, err)
		}
		names[img.page] = append(names[img.page], name)
	}
	return names, nil
}

// writeImageRefs appends one Markdown image reference per file name.
func writeImageRefs(b *strings.Builder, page int, names []string) {
	for i, name := range names {
		fmt.Fprintf(b, "![page %d image %d](images/%s)\n\n", page, i+1, name)
	}
}
