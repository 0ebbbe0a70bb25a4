// Package codec turns a raw revision record into a comma free text token that
// survives a text shuffle, and back
// Encoding is zlib (RFC 1950) followed by standard padded base64
package codec

import (
	"bytes"
	"encoding/base64"
	"io"
	"sync"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"

	"github.com/klauspost/compress/zlib"
)

// Codec is safe for concurrent use
type Codec struct {
	level   int
	writers sync.Pool
}

// DefaultLevel is the zlib level used when none is configured
const DefaultLevel = zlib.DefaultCompression

var std = MustNew(DefaultLevel)

// New returns a codec compressing at level
// valid levels are zlib.HuffmanOnly through zlib.BestCompression
func New(level int) (*Codec, error) {
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		return nil, perr.InvalidArgf("codec: compression level %d out of range", level)
	}
	c := &Codec{level: level}
	c.writers.New = func() any {
		w, _ := zlib.NewWriterLevel(io.Discard, level)
		return w
	}
	return c, nil
}

// MustNew is New that panics on a bad level
func MustNew(level int) *Codec {
	c, err := New(level)
	if err != nil {
		panic(err)
	}
	return c
}

// Level returns the configured compression level
func (c *Codec) Level() int { return c.level }

// Encode compresses raw and returns its base64 form
func (c *Codec) Encode(raw []byte) string {
	var buf bytes.Buffer
	w := c.writers.Get().(*zlib.Writer)
	w.Reset(&buf)
	// writes into a bytes.Buffer cannot fail
	_, _ = w.Write(raw)
	_ = w.Close()
	c.writers.Put(w)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// Decode reverses Encode
func (c *Codec) Decode(s string) ([]byte, error) {
	z, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "codec: base64")
	}
	r, err := zlib.NewReader(bytes.NewReader(z))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "codec: zlib header")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "codec: inflate")
	}
	return out, nil
}

// Encode uses the default level codec
func Encode(raw []byte) string { return std.Encode(raw) }

// Decode uses the default codec
func Decode(s string) ([]byte, error) { return std.Decode(s) }
