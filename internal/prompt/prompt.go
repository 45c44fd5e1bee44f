// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt manages the YAML prompt library used to ask a model
// about a paper.
//
// The library has two versions: "text" prompts see only the paper's
// Markdown, "image_text" prompts are also told which figure files exist so
// the answer can embed them. Each version is one YAML file:
//
//	prompts:
//	  yuanbao:
//	    description: Structured reading report
//	    template: |
//	      ...
//	      {{.Content}}
//
// Templates are text/template sources executed with Data.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/charmbracelet/log"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/smartpaper/internal/logging"
	"github.com/pdiddy/smartpaper/pkg/types"
)

var (
	// ErrUnknownPrompt is returned when a version has no prompt of that name.
	ErrUnknownPrompt = errors.New("unknown prompt")

	// ErrInvalidVersion is returned for versions other than text and image_text.
	ErrInvalidVersion = errors.New("invalid prompt version")
)

// Version selects one of the two prompt sets.
type Version string

const (
	VersionText      Version = "text"
	VersionImageText Version = "image_text"
)

// DefaultPrompt is used when a request names no prompt.
const DefaultPrompt = "yuanbao"

// ParseVersion validates a version name. The empty string means text.
func ParseVersion(s string) (Version, error) {
	switch Version(s) {
	case "", VersionText:
		return VersionText, nil
	case VersionImageText:
		return VersionImageText, nil
	default:
		return "", fmt.Errorf("%w: %q (use %q or %q)", ErrInvalidVersion, s, VersionText, VersionImageText)
	}
}

//go:embed defaults/*.yaml
var defaults embed.FS

const (
	defaultTextFile      = "defaults/prompts_llm.yaml"
	defaultImageTextFile = "defaults/prompts_llm_with_image.yaml"
)

// Entry is one prompt of the library.
type Entry struct {
	Description string `yaml:"description" json:"description"`
	Template    string `yaml:"template" json:"-"`
}

// Summary names a prompt for listings.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Data is what templates are executed with.
type Data struct {
	// Content is the paper's Markdown.
	Content string

	// Title and ID identify the paper.
	Title string
	ID    string

	// Images lists the figure file names an answer may embed.
	Images []string
}

type file struct {
	Prompts map[string]Entry `yaml:"prompts"`
}

// Library holds both prompt versions. It is safe for concurrent use;
// Reload swaps the sets atomically.
type Library struct {
	textFile      string
	imageTextFile string
	logger        *log.Logger

	mu      sync.RWMutex
	prompts map[Version]map[string]Entry
}

// Load reads the prompt files named in cfg. An empty path selects the
// built-in defaults. A missing or malformed file leaves its version empty
// and logs a warning; Load itself never fails.
func Load(cfg types.PromptConfig) *Library {
	l := &Library{
		textFile:      cfg.TextFile,
		imageTextFile: cfg.ImageTextFile,
		logger:        logging.Default(),
	}
	l.Reload()
	return l
}

// Reload re-reads both prompt files.
func (l *Library) Reload() {
	text := l.load(l.textFile, defaultTextFile, VersionText)
	imageText := l.load(l.imageTextFile, defaultImageTextFile, VersionImageText)

	l.mu.Lock()
	l.prompts = map[Version]map[string]Entry{
		VersionText:      text,
		VersionImageText: imageText,
	}
	l.mu.Unlock()

	l.logger.Info("loaded prompt library", "text", len(text), "image_text", len(imageText))
}

func (l *Library) load(path, fallback string, v Version) map[string]Entry {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaults.ReadFile(fallback)
		path = "built-in " + fallback
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		l.logger.Warn("prompt file not loaded", "version", v, "path", path, "err", err)
		return map[string]Entry{}
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		l.logger.Error("prompt file malformed", "version", v, "path", path, "err", err)
		return map[string]Entry{}
	}
	if f.Prompts == nil {
		l.logger.Warn("prompt file has no prompts key", "version", v, "path", path)
		return map[string]Entry{}
	}
	return f.Prompts
}

func (l *Library) set(version string) (map[string]Entry, Version, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return nil, "", err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.prompts[v], v, nil
}

// Get returns the raw template of a prompt.
func (l *Library) Get(name, version string) (string, error) {
	set, v, err := l.set(version)
	if err != nil {
		return "", err
	}
	e, ok := set[name]
	if !ok {
		return "", fmt.Errorf("%w: %q in version %s", ErrUnknownPrompt, name, v)
	}
	if strings.TrimSpace(e.Template) == "" {
		return "", fmt.Errorf("%w: %q in version %s has no template", ErrUnknownPrompt, name, v)
	}
	return e.Template, nil
}

// List returns the prompts of a version sorted by name. Prompts without a
// description are listed as "No description".
func (l *Library) List(version string) ([]Summary, error) {
	set, _, err := l.set(version)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(set))
	for name, e := range set {
		desc := e.Description
		if desc == "" {
			desc = "No description"
		}
		out = append(out, Summary{Name: name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Render executes a prompt with data. A template that never mentions
// .Content gets the paper appended after a blank line.
func (l *Library) Render(name, version string, data Data) (string, error) {
	src, err := l.Get(name, version)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing prompt %q: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %q: %w", name, err)
	}
	if !strings.Contains(src, ".Content") {
		buf.WriteString("\n\n")
		buf.WriteString(data.Content)
	}
	return buf.String(), nil
}
