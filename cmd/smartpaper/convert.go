// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartpaper/internal/acquire"
	"github.com/pdiddy/smartpaper/internal/convert"
	"github.com/pdiddy/smartpaper/internal/store"
	"github.com/pdiddy/smartpaper/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Convert PDF files to Markdown",
	Long: `Convert transforms PDF files into Markdown with YAML frontmatter,
writing papers/markdown/<id>.md. Images the backend extracts are imported
into the image store under the paper ID, and the Markdown is cached by
source URL.

Backends: pdftext (pure Go text extraction) and markitdown (container).
With --all, every PDF under papers/raw is converted.`,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.String("converter", "", "conversion backend: "+strings.Join(convert.Names(), ", "))
	f.Bool("strip-references", false, "drop the references section")
	f.Bool("use-cache", true, "reuse existing Markdown and the PDF cache")
	f.Bool("all", false, "convert every PDF under papers/raw")

	bindFlag("conversion.converter", f.Lookup("converter"))
	bindFlag("conversion.strip_references", f.Lookup("strip-references"))
	bindFlag("conversion.use_cache", f.Lookup("use-cache"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	cfg := loadConfig()

	if all {
		matches, err := filepath.Glob(filepath.Join(cfg.Conversion.PapersDir, "raw", "*.pdf"))
		if err != nil {
			return err
		}
		args = append(args, matches...)
	}
	if len(args) == 0 {
		return fmt.Errorf("provide one or more PDF paths, or --all")
	}

	ctx, stop := signalContext()
	defer stop()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	pipeline, err := newPipeline(cfg, st)
	if err != nil {
		return err
	}

	result := pipeline.ConvertBatch(ctx, papersFor(cfg.Conversion.PapersDir, args), os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed conversion", result.Failed)
	}
	return nil
}

// papersFor turns PDF paths into paper records, using the metadata written
// by acquire when there is one so titles and source URLs carry over.
func papersFor(papersDir string, paths []string) []types.Paper {
	papers := make([]types.Paper, 0, len(paths))
	for _, path := range paths {
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		paper := types.Paper{ID: id, PDFPath: path}
		if meta, err := acquire.ReadMetadata(acquire.MetadataPath(papersDir, id)); err == nil {
			paper = *meta
			paper.PDFPath = path
		}
		papers = append(papers, paper)
	}
	return papers
}
