// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PutImage stores (or replaces) the image bytes for key within doc.
func (s *Store) PutImage(ctx context.Context, doc, key string, data []byte, mime string) error {
	if key == "" {
		return fmt.Errorf("putting image: empty key")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (doc_id, key, mime, data, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(doc_id, key) DO UPDATE SET mime = excluded.mime, data = excluded.data, created_at = excluded.created_at`,
		doc, key, mime, data, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("putting image %s/%s: %w", doc, key, err)
	}
	return nil
}

// GetImage returns the bytes and MIME type stored for key within doc.
// A missing key yields ErrNotFound.
func (s *Store) GetImage(ctx context.Context, doc, key string) ([]byte, string, error) {
	var (
		data []byte
		mime sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, mime FROM images WHERE doc_id = ? AND key = ?`, doc, key,
	).Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("image %s/%s: %w", doc, key, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image %s/%s: %w", doc, key, err)
	}
	return data, mime.String, nil
}

// DeleteImage removes key from doc. It reports whether a row was deleted.
func (s *Store) DeleteImage(ctx context.Context, doc, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE doc_id = ? AND key = ?`, doc, key)
	if err != nil {
		return false, fmt.Errorf("deleting image %s/%s: %w", doc, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting image %s/%s: %w", doc, key, err)
	}
	return n > 0, nil
}

// ImageKeys lists the keys stored for doc in lexical order.
func (s *Store) ImageKeys(ctx context.Context, doc string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM images WHERE doc_id = ? ORDER BY key`, doc)
	if err != nil {
		return nil, fmt.Errorf("listing images for %s: %w", doc, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning image key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
