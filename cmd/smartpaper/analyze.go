// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartpaper/internal/analyze"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <arxiv-url>",
	Short: "Stream a model's reading of an arXiv paper",
	Long: `Analyze downloads and converts the paper when it is not cached yet,
renders the chosen prompt over its Markdown, and streams the model's answer
to stdout. Figure references in the answer are replaced with inline images
from the image store as they stream. The answer is also written to
outputs/analysis_<session>_<id>_prompt_<prompt>.md.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.String("prompt", "", "prompt name (default from prompts.default)")
	f.String("version", "text", "prompt version: text or image_text")
	f.String("session", "cli", "session name used in the output file name")
	f.String("output-dir", "", "directory for analysis files (default outputs)")

	bindFlag("server.output_dir", f.Lookup("output-dir"))

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	promptName, _ := cmd.Flags().GetString("prompt")
	version, _ := cmd.Flags().GetString("version")
	session, _ := cmd.Flags().GetString("session")

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(loadConfig(), os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	req := analyze.Request{URL: args[0], Prompt: promptName, Version: version, Session: session}
	return a.analyzer.Analyze(ctx, req, printEvent(os.Stdout, os.Stderr))
}

// printEvent writes chunk content to out and the final status to status.
func printEvent(out, status io.Writer) func(analyze.Event) error {
	return func(ev analyze.Event) error {
		switch ev.Type {
		case analyze.EventChunk:
			_, err := io.WriteString(out, ev.Content)
			return err
		case analyze.EventFinal:
			if ev.Success != nil && *ev.Success {
				fmt.Fprintf(status, "\nsaved: %s\n", ev.FilePath)
			}
		}
		return nil
	}
}
