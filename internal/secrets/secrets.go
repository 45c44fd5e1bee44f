// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files, with
// environment variables as a fallback. Each file in the directory is one
// secret: the filename is the key name and the trimmed contents the value.
//
// Known key files: anthropic-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/smartpaper/internal/logging"
)

// Key files and the environment variables that stand in for them.
const (
	AnthropicKey = "anthropic-api-key"
	OpenAIKey    = "openai-api-key"
)

var envFallbacks = map[string]string{
	AnthropicKey: "ANTHROPIC_API_KEY",
	OpenAIKey:    "OPENAI_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logging.Default().Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the secret stored under name, falling back to its
// environment variable. It returns "" when neither is set.
func Lookup(secrets map[string]string, name string) string {
	if v, ok := secrets[name]; ok && v != "" {
		return v
	}
	if env, ok := envFallbacks[name]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}
