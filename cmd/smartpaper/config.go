// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/smartpaper/internal/prompt"
	"github.com/pdiddy/smartpaper/internal/rewrite"
	"github.com/pdiddy/smartpaper/internal/secrets"
	"github.com/pdiddy/smartpaper/internal/server"
	"github.com/pdiddy/smartpaper/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "smartpaper/0.1"
)

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("secrets_dir", ".secrets")
	viper.SetDefault("papers_dir", "papers")

	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("http.user_agent", defaultUserAgent)

	viper.SetDefault("acquisition.download_delay", defaultDelay)
	viper.SetDefault("acquisition.max_retries", 5)

	viper.SetDefault("conversion.converter", string(types.ConverterPDFText))
	viper.SetDefault("conversion.strip_references", false)
	viper.SetDefault("conversion.use_cache", true)

	viper.SetDefault("store.db_dir", "db")
	viper.SetDefault("store.import_workers", 4)

	viper.SetDefault("ai.provider", string(types.ProviderClaude))
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.max_retries", 3)

	viper.SetDefault("rewrite.format", string(types.ImageMarkdown))
	viper.SetDefault("rewrite.key_match", string(types.KeyMatchExact))
	viper.SetDefault("rewrite.max_buffer", rewrite.DefaultMaxBuffer)
	viper.SetDefault("rewrite.lookup_timeout", rewrite.DefaultLookupTimeout)

	viper.SetDefault("prompts.default", prompt.DefaultPrompt)

	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("server.output_dir", "outputs")
}

// bindFlag ties a flag to a config key so flags override file and env.
func bindFlag(key string, f *pflag.Flag) {
	if f == nil {
		return
	}
	_ = viper.BindPFlag(key, f)
}

// loadConfig assembles the typed configuration from viper.
func loadConfig() types.Config {
	httpCfg := types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: viper.GetString("http.user_agent"),
	}
	papersDir := viper.GetString("papers_dir")

	cfg := types.Config{
		Acquisition: types.AcquisitionConfig{
			HTTPConfig:    httpCfg,
			PapersDir:     papersDir,
			DownloadDelay: viper.GetDuration("acquisition.download_delay"),
			MaxRetries:    viper.GetInt("acquisition.max_retries"),
		},
		Conversion: types.ConversionConfig{
			Converter:       types.ConverterName(viper.GetString("conversion.converter")),
			PapersDir:       papersDir,
			StripReferences: viper.GetBool("conversion.strip_references"),
			UseCache:        viper.GetBool("conversion.use_cache"),
		},
		Store: types.StoreConfig{
			DBDir:         viper.GetString("store.db_dir"),
			ImportWorkers: viper.GetInt("store.import_workers"),
		},
		AI: types.AIConfig{
			Provider:   types.AIProvider(viper.GetString("ai.provider")),
			Model:      viper.GetString("ai.model"),
			APIKey:     viper.GetString("ai.api_key"),
			BaseURL:    viper.GetString("ai.base_url"),
			MaxTokens:  viper.GetInt("ai.max_tokens"),
			MaxRetries: viper.GetInt("ai.max_retries"),
		},
		Rewrite: types.RewriteConfig{
			Format:        types.ImageFormat(viper.GetString("rewrite.format")),
			KeyMatch:      types.KeyMatch(viper.GetString("rewrite.key_match")),
			MaxBuffer:     viper.GetInt("rewrite.max_buffer"),
			LookupTimeout: viper.GetDuration("rewrite.lookup_timeout"),
		},
		Prompts: types.PromptConfig{
			TextFile:      viper.GetString("prompts.text_file"),
			ImageTextFile: viper.GetString("prompts.image_text_file"),
			Default:       viper.GetString("prompts.default"),
		},
		Server: types.ServerConfig{
			Addr:           viper.GetString("server.addr"),
			AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
			OutputDir:      viper.GetString("server.output_dir"),
		},
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = apiKey(cfg.AI.Provider)
	}
	return cfg
}

// apiKey returns the key for provider from .secrets/ or the environment.
func apiKey(provider types.AIProvider) string {
	if provider == types.ProviderOpenAI {
		return secrets.Lookup(loadedSecrets, secrets.OpenAIKey)
	}
	return secrets.Lookup(loadedSecrets, secrets.AnthropicKey)
}
