// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartpaper/internal/acquire"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [identifiers...]",
	Short: "Download papers from arXiv IDs, arXiv URLs, or direct PDF URLs",
	Long: `Acquire resolves paper identifiers (arXiv IDs, arXiv abstract or PDF
URLs, direct PDF URLs) to PDF files, downloads them, and creates metadata
records. Existing papers are skipped.`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	acquireCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")

	bindFlag("http.timeout", acquireCmd.Flags().Lookup("timeout"))
	bindFlag("acquisition.download_delay", acquireCmd.Flags().Lookup("delay"))

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more paper identifiers (arXiv IDs or URLs)")
	}

	ctx, stop := signalContext()
	defer stop()

	cfg := loadConfig().Acquisition
	client := newHTTPClient(cfg.HTTPConfig)

	result := acquire.AcquireBatch(ctx, client, args, cfg, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed acquisition", result.Failed)
	}
	return nil
}
