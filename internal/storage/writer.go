// Package storage persists collected observations incrementally.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Sternrassler/inat-obs-client/pkg/observations"
)

// Writer appends observation records to an NDJSON file, one raw record per
// line, a page at a time. It implements pagination.PageSink, so a collection
// run that aborts mid-way keeps every page it already fetched.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewWriter opens (or creates) the NDJSON file for appending.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}

	return &Writer{
		f:   f,
		enc: json.NewEncoder(f),
	}, nil
}

// WritePage appends every record of the page as one NDJSON line.
func (w *Writer) WritePage(ctx context.Context, page observations.Page) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, obs := range page {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.enc.Encode(obs.Raw); err != nil {
			return fmt.Errorf("write record %d: %w", obs.ID, err)
		}
	}

	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
