// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// URLHash returns the PDF cache key for a source URL.
func URLHash(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

// PutMarkdown caches the converted Markdown for url.
func (s *Store) PutMarkdown(ctx context.Context, url, markdown string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdf_cache (url_hash, url, markdown, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url_hash) DO UPDATE SET markdown = excluded.markdown, created_at = excluded.created_at`,
		URLHash(url), url, markdown, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("caching markdown for %s: %w", url, err)
	}
	return nil
}

// GetMarkdown returns the cached Markdown for url. ok is false on a miss.
func (s *Store) GetMarkdown(ctx context.Context, url string) (markdown string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT markdown FROM pdf_cache WHERE url_hash = ?`, URLHash(url),
	).Scan(&markdown)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cached markdown for %s: %w", url, err)
	}
	return markdown, true, nil
}

// DeleteMarkdown drops the cache entry for url. It reports whether one existed.
func (s *Store) DeleteMarkdown(ctx context.Context, url string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pdf_cache WHERE url_hash = ?`, URLHash(url))
	if err != nil {
		return false, fmt.Errorf("deleting cached markdown for %s: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting cached markdown for %s: %w", url, err)
	}
	return n > 0, nil
}
