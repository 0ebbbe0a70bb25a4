package dump

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"

	"github.com/klauspost/compress/gzip"
)

func readAll(t *testing.T, r *Reader) ([]int64, []string) {
	t.Helper()
	var offs []int64
	var recs []string
	for {
		off, raw, err := r.Next()
		if errors.Is(err, io.EOF) {
			return offs, recs
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		offs = append(offs, off)
		recs = append(recs, string(raw))
	}
}

func sample(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "sample.xml"))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func gz(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReader_AllCompressions(t *testing.T) {
	t.Parallel()

	plain := sample(t)
	bz, err := os.ReadFile(filepath.Join("testdata", "sample.xml.bz2"))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		kind Compression
		data []byte
	}{
		{Plain, plain},
		{Gzip, gz(t, plain)},
		{Bzip2, bz},
	}
	for _, c := range cases {
		r, err := NewReader(io.NopCloser(bytes.NewReader(c.data)))
		if err != nil {
			t.Fatalf("%s: %v", c.kind, err)
		}
		if r.Compression() != c.kind {
			t.Fatalf("detected %s, want %s", r.Compression(), c.kind)
		}
		offs, recs := readAll(t, r)
		if len(recs) != 2 {
			t.Fatalf("%s: records = %d", c.kind, len(recs))
		}
		for i, rec := range recs {
			if !strings.HasPrefix(rec, "<revision>") || !strings.HasSuffix(rec, "</revision>") {
				t.Fatalf("%s: record %d not delimited: %q", c.kind, i, rec)
			}
			if !bytes.Equal(plain[offs[i]:offs[i]+int64(len(rec))], []byte(rec)) {
				t.Fatalf("%s: offset %d does not point at record %d", c.kind, offs[i], i)
			}
		}
		id, ok := revision.PeekID([]byte(recs[1]))
		if !ok || id != 21 {
			t.Fatalf("%s: second record id = %d", c.kind, id)
		}
		st := r.Stats()
		if st.Records != 2 || st.Bytes != int64(len(plain)) || st.Oversize != 0 {
			t.Fatalf("%s: stats = %+v", c.kind, st)
		}
		// sticky EOF
		if _, _, err := r.Next(); !errors.Is(err, io.EOF) {
			t.Fatalf("%s: want sticky EOF, got %v", c.kind, err)
		}
		if err := r.Close(); err != nil {
			t.Fatalf("%s: close: %v", c.kind, err)
		}
	}
}

func TestReader_PartialTagsAndTrailingRecord(t *testing.T) {
	t.Parallel()

	in := "<<revision><id>1</id></revision><revisions/> <revision><id>2</id></revisio</revision>tail<revision><id>3</id>"
	r, _ := NewReader(io.NopCloser(strings.NewReader(in)))
	offs, recs := readAll(t, r)
	want := []string{
		"<revision><id>1</id></revision>",
		"<revision><id>2</id></revisio</revision>",
	}
	if len(recs) != 2 || recs[0] != want[0] || recs[1] != want[1] {
		t.Fatalf("records = %q", recs)
	}
	if offs[0] != 1 {
		t.Fatalf("offset = %d", offs[0])
	}
}

func TestReader_CustomTags(t *testing.T) {
	t.Parallel()

	r, _ := NewReader(io.NopCloser(bytes.NewReader(sample(t))), WithTags("<page>", "</page>"))
	_, recs := readAll(t, r)
	if len(recs) != 1 || !strings.Contains(recs[0], "<title>Example</title>") {
		t.Fatalf("records = %q", recs)
	}
}

func TestReader_OversizeSkipped(t *testing.T) {
	t.Parallel()

	in := "<revision>" + strings.Repeat("x", 100) + "</revision><revision>ok</revision>"
	r, _ := NewReader(io.NopCloser(strings.NewReader(in)), WithMaxRecord(50))
	_, recs := readAll(t, r)
	if len(recs) != 1 || recs[0] != "<revision>ok</revision>" {
		t.Fatalf("records = %q", recs)
	}
	if st := r.Stats(); st.Oversize != 1 || st.Records != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestReader_TruncatedGzipEndsCleanly(t *testing.T) {
	t.Parallel()

	full := gz(t, sample(t))
	r, err := NewReader(io.NopCloser(bytes.NewReader(full[:len(full)-12])))
	if err != nil {
		t.Fatal(err)
	}
	for {
		_, _, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !perr.IsCode(err, perr.ErrorCodeMalformed) {
			t.Fatalf("unexpected error kind: %v", err)
		}
		if err != nil {
			break
		}
	}
}

func TestReader_BadGzipHeader(t *testing.T) {
	t.Parallel()

	_, err := NewReader(io.NopCloser(bytes.NewReader([]byte{0x1f, 0x8b, 0x00, 0x01})))
	if !perr.IsCode(err, perr.ErrorCodeMalformed) {
		t.Fatalf("want malformed, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	r, err := Open(filepath.Join("testdata", "sample.xml.bz2"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, recs := readAll(t, r); len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}

	if _, err := Open(filepath.Join(t.TempDir(), "nope.xml")); !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestTruncateUTF8(t *testing.T) {
	t.Parallel()

	if got := truncateUTF8([]byte("héllo"), 2); got != "h..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateUTF8([]byte("abc"), 5); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
