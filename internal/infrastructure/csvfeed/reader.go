// Package csvfeed reads header-keyed pricing feeds from CSV files.
package csvfeed

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

var _ domain.FeedOpener = Opener{}

// Opener opens CSV feeds from the local filesystem
type Opener struct{}

// Open reads the header line of path. A missing or unreadable file, or one
// without a header, is reported as domain.ErrIngestFile.
func (Opener) Open(path string) (domain.FeedReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIngestFile, err)
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIngestFile, path, err)
	}
	r.closer = f
	return r, nil
}

// Reader yields one domain.FeedRecord per CSV line, keyed by the header
type Reader struct {
	csv    *csv.Reader
	header []string
	closer io.Closer
}

// NewReader consumes the header line from r
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header")
		}
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	return &Reader{csv: cr, header: header}, nil
}

// Read returns the next record with every value trimmed. Short lines leave
// trailing columns absent and extra values are dropped. io.EOF marks the end.
func (r *Reader) Read() (domain.FeedRecord, error) {
	for {
		fields, err := r.csv.Read()
		if err != nil {
			return nil, err
		}
		if isBlank(fields) {
			continue
		}

		rec := make(domain.FeedRecord, len(r.header))
		for i, name := range r.header {
			if i >= len(fields) {
				break
			}
			rec[name] = strings.TrimSpace(fields[i])
		}
		return rec, nil
	}
}

// Close closes the underlying file, if any
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
