// Package repo holds the output sinks and the database backed availability loader
package repo

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"
)

// FileSink writes formatted output lines to w
type FileSink struct {
	mu    sync.Mutex
	w     io.Writer
	bw    *bufio.Writer
	delim string
}

// NewFileSink buffers lines for w; Close flushes and closes w when it is an io.Closer
func NewFileSink(w io.Writer, delim string) *FileSink {
	if delim == "" {
		delim = domain.DelimComma
	}
	return &FileSink{w: w, bw: bufio.NewWriterSize(w, 256<<10), delim: delim}
}

var _ domain.Sink = (*FileSink)(nil)

// Name implements domain.Sink
func (s *FileSink) Name() string { return "file" }

// Write implements domain.Sink
func (s *FileSink) Write(_ context.Context, rs []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		if _, err := s.bw.WriteString(r.Format(s.delim)); err != nil {
			return err
		}
		if err := s.bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Close implements domain.Sink
func (s *FileSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.bw.Flush()
	if c, ok := s.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
