// Package source opens previously downloaded game exports for offline recaps.
package source

import (
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/lichess"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

// Open returns a reader over the NDJSON lines in path, decompressing by
// extension (.zst, .gz, .bz2). "-" reads standard input.
func Open(path string) (io.ReadCloser, error) {
	var f io.ReadCloser
	if path == "-" {
		f = io.NopCloser(os.Stdin)
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		f = file
	}

	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &chain{r: dec, closers: []func() error{func() error { dec.Close(); return nil }, f.Close}}, nil
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &chain{r: gz, closers: []func() error{gz.Close, f.Close}}, nil
	case strings.HasSuffix(path, ".bz2"):
		return &chain{r: bzip2.NewReader(f), closers: []func() error{f.Close}}, nil
	}
	return f, nil
}

// chain reads from a decompressor and closes it before the file beneath.
type chain struct {
	r       io.Reader
	closers []func() error
}

func (c *chain) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *chain) Close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WindowFilter forwards records whose timestamp lies in [since, until).
// Records without a timestamp and malformed lines pass through, since they
// cannot be placed outside the window.
type WindowFilter struct {
	next         lichess.Sink
	since, until int64
	Dropped      int
}

// Windowed wraps next with a WindowFilter for the given bounds.
func Windowed(next lichess.Sink, since, until int64) *WindowFilter {
	return &WindowFilter{next: next, since: since, until: until}
}

// WindowedYear wraps next with a filter for the calendar year.
func WindowedYear(next lichess.Sink, year int) *WindowFilter {
	since, until := model.YearWindow(year)
	return Windowed(next, since, until)
}

func (w *WindowFilter) Ingest(rec model.GameRecord) {
	if ts, ok := rec.Timestamp(); ok && (ts < w.since || ts >= w.until) {
		w.Dropped++
		return
	}
	w.next.Ingest(rec)
}

func (w *WindowFilter) IngestMalformed() { w.next.IngestMalformed() }
