// Package output writes the flat per-character CSV consumed by the enrichment pass.
package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Header lists the fixed output columns.
var Header = []string{"id", "name", "url", "favorites", "mostPopularEntry", "mpeURL", "mpeMembers", "mpeType", "mpeSource"}

// Mode selects whether Open truncates or appends.
type Mode int

// Output modes.
const (
	ModeTruncate Mode = iota
	ModeAppend
)

// Row is one character flattened with its most popular related work.
// The MPE fields are empty when the character has no related works.
type Row struct {
	ID               int
	Name             string
	URL              string
	Favorites        int
	MostPopularEntry string
	MPEURL           string
	MPEMembers       string
	MPEType          string
	MPESource        string
}

// Writer appends rows to the destination file. Rows are written unbuffered so a
// killed process leaves every completed row on disk.
type Writer struct {
	file   *os.File
	closed bool
}

// Open creates the destination. Truncate mode writes the header line; append mode never does.
func Open(path string, mode Mode) (*Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create output dir for %s: %w", path, err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if mode == ModeAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	// #nosec G304 -- the output path is operator supplied.
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}

	w := &Writer{file: f}
	if mode == ModeTruncate {
		if _, err := f.WriteString(strings.Join(Header, ",") + "\n"); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header to %s: %w", path, err)
		}
	}
	return w, nil
}

// WriteRow serializes row on one line.
func (w *Writer) WriteRow(_ context.Context, row Row) error {
	if w.closed {
		return errors.New("output writer is closed")
	}
	if _, err := w.file.WriteString(FormatRow(row) + "\n"); err != nil {
		return fmt.Errorf("write row %d: %w", row.ID, err)
	}
	return nil
}

// Close syncs and closes the file. Calling it more than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	syncErr := w.file.Sync()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("sync output: %w", syncErr)
	}
	return nil
}

// FormatRow joins the row fields in Header order. Name and MostPopularEntry are quoted.
func FormatRow(row Row) string {
	return strings.Join([]string{
		strconv.Itoa(row.ID),
		Quote(row.Name),
		row.URL,
		strconv.Itoa(row.Favorites),
		Quote(row.MostPopularEntry),
		row.MPEURL,
		row.MPEMembers,
		row.MPEType,
		row.MPESource,
	}, ",")
}

var lineBreaks = strings.NewReplacer("\r\n", "", "\r", "", "\n", "")

// Quote wraps s in double quotes, doubling embedded quotes and dropping line breaks.
func Quote(s string) string {
	s = lineBreaks.Replace(s)
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
