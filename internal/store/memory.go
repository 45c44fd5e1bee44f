// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryImage struct {
	data []byte
	mime string
}

// Memory is an in-process image store with the same image API as Store.
// Reads take a shared lock, so concurrent streams never block each other.
type Memory struct {
	mu     sync.RWMutex
	images map[string]map[string]memoryImage
}

// NewMemory returns an empty in-memory image store.
func NewMemory() *Memory {
	return &Memory{images: make(map[string]map[string]memoryImage)}
}

// PutImage stores a copy of data for key within doc.
func (m *Memory) PutImage(_ context.Context, doc, key string, data []byte, mime string) error {
	if key == "" {
		return fmt.Errorf("putting image: empty key")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	byKey, ok := m.images[doc]
	if !ok {
		byKey = make(map[string]memoryImage)
		m.images[doc] = byKey
	}
	byKey[key] = memoryImage{data: buf, mime: mime}
	return nil
}

// GetImage returns the bytes and MIME type for key within doc, or ErrNotFound.
func (m *Memory) GetImage(ctx context.Context, doc, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[doc][key]
	if !ok {
		return nil, "", fmt.Errorf("image %s/%s: %w", doc, key, ErrNotFound)
	}
	return img.data, img.mime, nil
}

// DeleteImage removes key from doc. It reports whether it existed.
func (m *Memory) DeleteImage(_ context.Context, doc, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[doc][key]; !ok {
		return false, nil
	}
	delete(m.images[doc], key)
	return true, nil
}

// ImageKeys lists the keys stored for doc in lexical order.
func (m *Memory) ImageKeys(_ context.Context, doc string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.images[doc]))
	for k := range m.images[doc] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
