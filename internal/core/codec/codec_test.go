package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"io"
	"math/rand"
	"strings"
	"testing"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewSource(7))
	binary := make([]byte, 4096)
	rnd.Read(binary)

	cases := map[string][]byte{
		"empty":  {},
		"nil":    nil,
		"xml":    []byte(`<revision><id>21</id><parentid>20</parentid><text>a,b,c</text></revision>`),
		"binary": binary,
		"nul":    {0, 0, 0, 0xff},
		"large":  bytes.Repeat([]byte("vandal ism ,\n"), 200_000),
	}
	for _, level := range []int{DefaultLevel, 1, 9} {
		c := MustNew(level)
		for name, in := range cases {
			enc := c.Encode(in)
			if strings.ContainsAny(enc, ",\t\n") {
				t.Fatalf("%s/%d: encoded form contains a delimiter", name, level)
			}
			out, err := c.Decode(enc)
			if err != nil {
				t.Fatalf("%s/%d: decode: %v", name, level, err)
			}
			if !bytes.Equal(out, in) {
				t.Fatalf("%s/%d: round trip mismatch (%d vs %d bytes)", name, level, len(out), len(in))
			}
		}
	}
}

func TestEncode_IsRFC1950(t *testing.T) {
	t.Parallel()

	in := []byte("hello hello hello")
	z, err := base64.StdEncoding.DecodeString(Encode(in))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	// the stdlib zlib reader must accept what we write
	r, err := zlib.NewReader(bytes.NewReader(z))
	if err != nil {
		t.Fatalf("zlib: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil || !bytes.Equal(got, in) {
		t.Fatalf("got %q err=%v", got, err)
	}

	// and we must read what the stdlib writes
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(in)
	_ = w.Close()
	got, err = Decode(base64.StdEncoding.EncodeToString(buf.Bytes()))
	if err != nil || !bytes.Equal(got, in) {
		t.Fatalf("decode stdlib stream: %q err=%v", got, err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	good := Encode([]byte("some revision text"))
	cases := map[string]string{
		"not base64":  "!!!",
		"not zlib":    base64.StdEncoding.EncodeToString([]byte("plain")),
		"truncated":   base64.StdEncoding.EncodeToString(mustB64(t, good)[:6]),
		"url variant": "-_-_",
	}
	for name, in := range cases {
		if _, err := Decode(in); !perr.IsCode(err, perr.ErrorCodeMalformed) {
			t.Fatalf("%s: want malformed, got %v", name, err)
		}
	}
}

func TestNew_RejectsBadLevel(t *testing.T) {
	t.Parallel()

	for _, lvl := range []int{-3, 10} {
		if _, err := New(lvl); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("level %d: want invalid argument, got %v", lvl, err)
		}
	}
	if c := MustNew(3); c.Level() != 3 {
		t.Fatalf("level = %d", c.Level())
	}
}

func mustB64(t *testing.T, s string) []byte {
	t.Helper()
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
