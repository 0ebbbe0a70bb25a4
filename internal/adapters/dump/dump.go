// Package dump splits MediaWiki history dumps into raw <revision> records
//
// Design choices:
// - Compression is sniffed from magic bytes so plain, gzip and bzip2 dumps open the same way
// - Records are found by byte matching the start and end tags, the way streaming
//   XML input formats split files, so nothing is XML decoded here
// - Oversized records are skipped and counted instead of failing the task
package dump

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"io"
	"os"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"

	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultStartTag opens a record
	DefaultStartTag = "<revision>"
	// DefaultEndTag closes a record
	DefaultEndTag = "</revision>"
	// DefaultMaxRecord caps a single record in bytes
	DefaultMaxRecord = 64 << 20

	sampleRawMax = 512
)

// Compression identifies the container format of a dump stream
type Compression string

// Known container formats
const (
	Plain Compression = "plain"
	Gzip  Compression = "gzip"
	Bzip2 Compression = "bzip2"
)

// Stats are running counters of a Reader
type Stats struct {
	Records  int64
	Oversize int64
	Bytes    int64 // uncompressed bytes consumed
}

// Option configures a Reader
type Option func(*Reader)

// WithTags overrides the record delimiters
func WithTags(start, end string) Option {
	return func(r *Reader) {
		if start != "" && end != "" {
			r.start, r.end = []byte(start), []byte(end)
		}
	}
}

// WithMaxRecord overrides the record size cap; non positive keeps the default
func WithMaxRecord(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.max = n
		}
	}
}

// WithName labels the reader in logs
func WithName(name string) Option { return func(r *Reader) { r.name = name } }

// Reader yields raw records with their uncompressed byte offset
// it is not safe for concurrent use
type Reader struct {
	src   io.Closer
	dec   io.Closer
	br    *bufio.Reader
	kind  Compression
	name  string
	start []byte
	end   []byte
	max   int

	pos     int64
	stats   Stats
	err     error
	sampled bool
}

// Open opens a dump file of any supported compression
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "dump: open %s", path)
	}
	return NewReader(f, append([]Option{WithName(path)}, opts...)...)
}

// NewReader sniffs the compression of rc and wraps it; rc is closed by Close
func NewReader(rc io.ReadCloser, opts ...Option) (*Reader, error) {
	r := &Reader{
		src:   rc,
		start: []byte(DefaultStartTag),
		end:   []byte(DefaultEndTag),
		max:   DefaultMaxRecord,
		name:  "stream",
	}
	for _, o := range opts {
		o(r)
	}

	raw := bufio.NewReaderSize(rc, 64<<10)
	magic, _ := raw.Peek(3)
	var body io.Reader
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		gz, err := gzip.NewReader(raw)
		if err != nil {
			_ = rc.Close()
			return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "dump: gzip header")
		}
		r.kind, r.dec, body = Gzip, gz, gz
	case bytes.Equal(magic, []byte("BZh")):
		r.kind, body = Bzip2, bzip2.NewReader(raw)
	default:
		r.kind, body = Plain, raw
	}
	r.br = bufio.NewReaderSize(body, 1<<20)
	return r, nil
}

// Compression reports the detected container format
func (r *Reader) Compression() Compression { return r.kind }

// Stats returns the counters so far
func (r *Reader) Stats() Stats { return r.stats }

// Next returns the next record including its start and end tags
// it returns io.EOF after the last complete record; a trailing unterminated record is dropped
func (r *Reader) Next() (int64, []byte, error) {
	if r.err != nil {
		return 0, nil, r.err
	}
	for {
		if err := r.skipTo(r.start); err != nil {
			return 0, nil, r.fail(err)
		}
		offset := r.pos - int64(len(r.start))

		rec := make([]byte, 0, 4096)
		rec = append(rec, r.start...)
		rec, over, err := r.collectTo(rec, r.end)
		if err != nil {
			return 0, nil, r.fail(err)
		}
		if over {
			r.stats.Oversize++
			logger.Named("dump").Warn().Str("dump", r.name).Int64("offset", offset).Int("max", r.max).
				Msg("dump: record exceeds size cap, skipped")
			continue
		}
		r.stats.Records++
		if !r.sampled {
			r.sampled = true
			logger.Named("dump").Debug().Str("dump", r.name).Str("compression", string(r.kind)).
				Str("sample_raw", truncateUTF8(rec, sampleRawMax)).Msg("dump: first record")
		}
		return offset, rec, nil
	}
}

// Close closes the decompressor and the source
func (r *Reader) Close() error {
	var first error
	if r.dec != nil {
		first = r.dec.Close()
	}
	if r.src != nil {
		if err := r.src.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Reader) fail(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		err = io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		logger.Named("dump").Warn().Str("dump", r.name).Int64("offset", r.pos).Msg("dump: truncated stream")
		err = io.EOF
	default:
		err = perr.Wrapf(err, perr.ErrorCodeMalformed, "dump: read %s", r.name)
	}
	r.err = err
	return err
}

func (r *Reader) readByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err == nil {
		r.pos++
		r.stats.Bytes++
	}
	return b, err
}

// skipTo consumes input up to and including tag
func (r *Reader) skipTo(tag []byte) error {
	i := 0
	for {
		b, err := r.readByte()
		if err != nil {
			return err
		}
		switch {
		case b == tag[i]:
			i++
			if i == len(tag) {
				return nil
			}
		case b == tag[0]:
			i = 1
		default:
			i = 0
		}
	}
}

// collectTo appends input to rec up to and including tag
// past the size cap bytes are still consumed but no longer kept
func (r *Reader) collectTo(rec, tag []byte) ([]byte, bool, error) {
	i := 0
	over := false
	for {
		b, err := r.readByte()
		if err != nil {
			return rec, over, err
		}
		if !over {
			rec = append(rec, b)
			if len(rec) > r.max {
				over = true
				rec = rec[:0]
			}
		}
		switch {
		case b == tag[i]:
			i++
			if i == len(tag) {
				return rec, over, nil
			}
		case b == tag[0]:
			i = 1
		default:
			i = 0
		}
	}
}

// truncateUTF8 returns b as a string of at most max bytes cut on a rune boundary
func truncateUTF8(b []byte, max int) string {
	if max <= 0 || len(b) <= max {
		return string(b)
	}
	i := max
	for i > 0 && (b[i]&0xC0) == 0x80 {
		i--
	}
	if i <= 0 {
		i = max
	}
	return string(b[:i]) + "..."
}
