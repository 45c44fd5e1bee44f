// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "smartpaper/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AcquisitionConfig holds settings for downloading papers.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// PapersDir is the base directory for papers (contains raw/, metadata/, markdown/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// DownloadDelay is the pause between consecutive downloads in a batch.
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// MaxRetries bounds the retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ConverterName identifies a registered PDF-to-Markdown converter.
type ConverterName string

const (
	ConverterPDFText    ConverterName = "pdftext"
	ConverterMarkitdown ConverterName = "markitdown"
)

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	// Converter selects the registered converter by name.
	Converter ConverterName `json:"converter" yaml:"converter"`

	// PapersDir is the base directory for papers (contains raw/, metadata/, markdown/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// StripReferences drops everything after the References heading.
	StripReferences bool `json:"strip_references" yaml:"strip_references"`

	// UseCache reuses Markdown cached for the same source URL.
	UseCache bool `json:"use_cache" yaml:"use_cache"`
}

// StoreConfig holds settings for the SQLite image store and PDF cache.
type StoreConfig struct {
	// DBDir is the directory holding smartpaper.db (default "db").
	DBDir string `json:"db_dir" yaml:"db_dir"`

	// ImportWorkers bounds concurrent image imports (default 4).
	ImportWorkers int `json:"import_workers" yaml:"import_workers"`
}

// AIProvider identifies the streaming language model API.
type AIProvider string

const (
	ProviderClaude AIProvider = "claude"
	ProviderOpenAI AIProvider = "openai"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the API: claude or openai (any OpenAI-compatible endpoint).
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps the length of one completion (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of retry attempts on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ImageFormat selects how resolved image references are inlined.
type ImageFormat string

const (
	ImageMarkdown ImageFormat = "markdown"
	ImageHTML     ImageFormat = "html"
)

// KeyMatch selects the resolver's key fallback chain.
type KeyMatch string

const (
	KeyMatchExact     KeyMatch = "exact"
	KeyMatchPageImage KeyMatch = "page-image"
)

// RewriteConfig holds settings for streaming image reference rewriting.
type RewriteConfig struct {
	// Format selects the inline representation: markdown or html.
	Format ImageFormat `json:"format" yaml:"format"`

	// KeyMatch selects exact or page-image key matching.
	KeyMatch KeyMatch `json:"key_match" yaml:"key_match"`

	// MaxBuffer caps a held candidate reference in characters (default 500).
	MaxBuffer int `json:"max_buffer" yaml:"max_buffer"`

	// LookupTimeout bounds one image lookup (default 2s).
	LookupTimeout time.Duration `json:"lookup_timeout" yaml:"lookup_timeout"`
}

// PromptConfig locates the YAML prompt libraries.
type PromptConfig struct {
	// TextFile holds prompts applied to Markdown only.
	TextFile string `json:"text_file" yaml:"text_file"`

	// ImageTextFile holds prompts that expect image references in the answer.
	ImageTextFile string `json:"image_text_file" yaml:"image_text_file"`

	// Default is the prompt used when a request names none (default "yuanbao").
	Default string `json:"default" yaml:"default"`
}

// ServerConfig holds settings for the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default "127.0.0.1:8501").
	Addr string `json:"addr" yaml:"addr"`

	// AllowedOrigins lists CORS origins; empty allows all.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`

	// OutputDir is where analysis results are written (default "outputs").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// Config groups all stage configurations.
type Config struct {
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition"`
	Conversion  ConversionConfig  `json:"conversion" yaml:"conversion"`
	Store       StoreConfig       `json:"store" yaml:"store"`
	AI          AIConfig          `json:"ai" yaml:"ai"`
	Rewrite     RewriteConfig     `json:"rewrite" yaml:"rewrite"`
	Prompts     PromptConfig      `json:"prompts" yaml:"prompts"`
	Server      ServerConfig      `json:"server" yaml:"server"`
}
