// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pdiddy/smartpaper/internal/container"
)

// ErrUnknownConverter is returned by New for names nothing registered.
var ErrUnknownConverter = errors.New("unknown converter")

// Options carries what a backend may need at construction time.
type Options struct {
	// Runtime runs container-based backends. Backends that need one and
	// find it nil detect docker or podman themselves.
	Runtime container.Runtime
}

// Factory builds a Converter.
type Factory func(Options) (Converter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a converter available under name. It panics when name is
// already taken.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic("convert: converter already registered: " + name)
	}
	registry[name] = f
}

// New builds the converter registered under name.
func New(name string, opts Options) (Converter, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownConverter, name, Names())
	}
	return f(opts)
}

// Names lists the registered converters in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(PDFTextName, func(Options) (Converter, error) {
		return &PDFTextConverter{}, nil
	})
	Register(MarkitdownName, func(opts Options) (Converter, error) {
		rt := opts.Runtime
		if rt == nil {
			var err error
			if rt, err = container.DetectRuntime(); err != nil {
				return nil, err
			}
		}
		return NewMarkitdownConverter(rt)
	})
}
