// Package streaming speaks the line protocol of streaming map/reduce frameworks:
// one key\tvalue pair per line on stdin and stdout
package streaming

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/mapred"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// Writer emits pairs as key\tvalue lines; safe for concurrent use
type Writer struct {
	mu  sync.Mutex
	bw  *bufio.Writer
	sep string
	n   int64
}

// NewWriter buffers output to w; call Flush when done
func NewWriter(w io.Writer) *Writer {
	return NewDelimitedWriter(w, "\t")
}

// NewDelimitedWriter joins key and value with sep instead of a tab
// reduce tasks use it to write final output lines
func NewDelimitedWriter(w io.Writer, sep string) *Writer {
	if sep == "" {
		sep = "\t"
	}
	return &Writer{bw: bufio.NewWriterSize(w, 256<<10), sep: sep}
}

// Emit writes one line; keys must not contain the separator and neither side may contain newlines
func (w *Writer) Emit(key, value string) error {
	if strings.Contains(key, w.sep) || strings.ContainsRune(key, '\n') || strings.ContainsRune(value, '\n') {
		return perr.InvalidArgf("streaming: key or value contains a delimiter")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.WriteString(key); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(w.sep); err != nil {
		return err
	}
	if _, err := w.bw.WriteString(value); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// Flush pushes buffered lines to the underlying writer
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Flush()
}

// Lines returns how many lines were emitted
func (w *Writer) Lines() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// LineSource yields every non empty line of r as a record; offsets are byte offsets
type LineSource struct {
	br  *bufio.Reader
	pos int64
}

// NewLineSource wraps r
func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{br: bufio.NewReaderSize(r, 1<<20)}
}

// Next implements mapred.RecordSource
func (s *LineSource) Next() (int64, []byte, error) {
	for {
		line, err := mapred.ReadLine(s.br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, nil, io.EOF
			}
			return 0, nil, perr.Wrap(err, perr.ErrorCodeMalformed, "streaming: read")
		}
		off := s.pos
		s.pos += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		return off, []byte(line), nil
	}
}

// IdentityMapper re-emits key\tvalue records unchanged; it lets a local job reduce
// the text output of an earlier map run
type IdentityMapper struct{}

// Map implements mapred.Mapper
func (IdentityMapper) Map(_ context.Context, _ int64, raw []byte, emit mapred.Emitter) error {
	kv := mapred.SplitLine(string(raw))
	return emit.Emit(kv.Key, kv.Value)
}
