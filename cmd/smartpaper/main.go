// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the smartpaper CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the smartpaper CLI.
var rootCmd = &cobra.Command{
	Use:   "smartpaper",
	Short: "Read arXiv papers with a language model",
	Long: `smartpaper downloads arXiv papers, converts them to Markdown, and streams
a language model's reading of them. Figures the model references are inlined
from the local image store as data URIs while the answer streams.

Each stage is a subcommand: acquire, convert, analyze, and serve for the
HTTP API. prompts and images inspect the prompt library and image store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.SetLevel(viper.GetString("log_level"))

		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logging.Default().Debug("loaded secrets", "dir", dir, "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./smartpaper.yaml or ~/.config/smartpaper/smartpaper.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("papers-dir", "papers", "base directory for papers")
	pf.String("db-dir", "db", "directory holding smartpaper.db")

	bindFlag("log_level", pf.Lookup("log-level"))
	bindFlag("papers_dir", pf.Lookup("papers-dir"))
	bindFlag("store.db_dir", pf.Lookup("db-dir"))

	setDefaults()
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("smartpaper")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "smartpaper"))
		}
	}

	viper.SetEnvPrefix("SMARTPAPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
