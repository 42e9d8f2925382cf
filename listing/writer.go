package listing

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// CSVWriter buffers listings as url,title,price rows and uploads them to an afs location
type CSVWriter struct {
	fs     afs.Service
	URL    string
	buffer bytes.Buffer
	writer *csv.Writer
	rows   int
	mu     sync.Mutex
}

// Write appends listings
func (w *CSVWriter) Write(listings ...*Listing) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, listing := range listings {
		if err := w.writer.Write(listing.Record()); err != nil {
			return fmt.Errorf("failed to write listing %v: %w", listing.URL, err)
		}
		w.rows++
	}
	w.writer.Flush()
	return w.writer.Error()
}

// Flush uploads all rows written so far, replacing the destination content
func (w *CSVWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fs.Upload(ctx, w.URL, file.DefaultFileOsMode, bytes.NewReader(w.buffer.Bytes())); err != nil {
		return fmt.Errorf("failed to upload %v: %w", w.URL, err)
	}
	return nil
}

// Rows returns the number of written rows
func (w *CSVWriter) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// NewCSVWriter creates a writer for the destination URL, any afs scheme is supported
func NewCSVWriter(fs afs.Service, URL string) *CSVWriter {
	ret := &CSVWriter{fs: fs, URL: URL}
	ret.writer = csv.NewWriter(&ret.buffer)
	return ret
}
