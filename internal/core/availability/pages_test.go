package availability

import (
	"path/filepath"
	"strings"
	"testing"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/testkit"
)

func TestLoadPages(t *testing.T) {
	t.Parallel()

	s, err := LoadPages(strings.NewReader("revisions_count,page_id\n812,7\n90,12\n"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || !s.Contains(7) || !s.Contains(12) || s.Contains(8) {
		t.Fatalf("set = %+v", s)
	}

	for name, src := range map[string]string{
		"empty":     "",
		"no column": "id\n7\n",
		"bad id":    "page_id\nseven\n",
		"zero":      "page_id\n0\n",
		"short row": "name,page_id\nonly\n",
	} {
		if _, err := LoadPages(strings.NewReader(src)); !perr.IsCode(err, perr.ErrorCodeConfig) {
			t.Fatalf("%s: want config error, got %v", name, err)
		}
	}
}

func TestPageSet_NilAdmitsEverything(t *testing.T) {
	t.Parallel()

	var s *PageSet
	if !s.Contains(42) || s.Len() != 0 {
		t.Fatal("nil set must admit every page")
	}
	if NewPageSet(1).Contains(42) {
		t.Fatal("explicit set must filter")
	}
}

func TestLoadPagesFile(t *testing.T) {
	t.Parallel()

	p := testkit.WriteFile(t, "pages_with_most_revisions.csv", "page_id\n7\n")
	s, err := LoadPagesFile(p)
	if err != nil || !s.Contains(7) {
		t.Fatalf("set=%+v err=%v", s, err)
	}
	if _, err := LoadPagesFile(filepath.Join(t.TempDir(), "missing.csv")); !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("missing file: %v", err)
	}
}
