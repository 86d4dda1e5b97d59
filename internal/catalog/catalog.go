// Package catalog provides the read-only catalog collaborators the menu index
// loads from: the Mongo products/deals collections, a JSON file and a Redis
// cache in front of either.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"orderagent/internal/menu"
)

// File serves a catalog from a JSON array of menu entries.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) ListMenuEntries(_ context.Context) ([]menu.Entry, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries []menu.Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", f.Path, err)
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Name == "" || e.Price.IsNegative() {
			continue
		}
		if e.Category == "" {
			e.Category = menu.CategoryItem
		}
		out = append(out, e)
	}

	return out, nil
}

// Static serves a fixed slice, mostly for tests and demos.
type Static []menu.Entry

func (s Static) ListMenuEntries(context.Context) ([]menu.Entry, error) {
	return append([]menu.Entry(nil), s...), nil
}
