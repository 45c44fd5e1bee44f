// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const defaultImportWorkers = 4

// imageExts lists the file extensions ImportDir picks up.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// ImageSink receives images during import. Store and Memory implement it.
type ImageSink interface {
	PutImage(ctx context.Context, doc, key string, data []byte, mime string) error
}

// ImportDir stores every image file directly under dir into sink as part of
// doc, keyed by file basename. Files are read and written concurrently with
// at most workers in flight; ImportDir returns only after every write has
// finished. A missing directory imports nothing.
func ImportDir(ctx context.Context, sink ImageSink, doc, dir string, workers int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading image directory %s: %w", dir, err)
	}
	if workers <= 0 {
		workers = defaultImportWorkers
	}

	var imported atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !imageExts[ext] {
			continue
		}

		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("reading image %s: %w", name, err)
			}
			if err := sink.PutImage(gctx, doc, name, data, mime.TypeByExtension(ext)); err != nil {
				return err
			}
			imported.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(imported.Load()), err
	}
	return int(imported.Load()), nil
}
