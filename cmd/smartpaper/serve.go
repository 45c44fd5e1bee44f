// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Long: `Serve starts the HTTP API:

  GET  /api/health     liveness
  GET  /api/prompts    prompts of ?version=text|image_text
  GET  /api/examples   example arXiv URLs
  POST /api/analyze    {"url", "prompt", "version", "session"}; streams
                       newline-delimited JSON events`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default "+server.DefaultAddr+")")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "CORS origins (default: all)")

	bindFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	bindFlag("server.allowed_origins", serveCmd.Flags().Lookup("allowed-origins"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	if logging.Default().GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}

	srv := server.New(a.analyzer, a.prompts, cfg.Server, logging.Default())
	return srv.Serve(ctx, ln)
}
