package revision

import (
	"testing"
	"time"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

const fullRev = `<revision>
      <id>21</id>
      <parentid>20</parentid>
      <timestamp>2004-05-10T13:15:00Z</timestamp>
      <contributor>
        <username>Example</username>
        <id>77</id>
      </contributor>
      <minor />
      <comment>fix &amp; tidy</comment>
      <model>wikitext</model>
      <format>text/x-wiki</format>
      <text xml:space="preserve" bytes="11">Hello World</text>
      <sha1>abc123</sha1>
    </revision>`

const anonRev = `<revision>
      <id>5</id>
      <timestamp>2004-05-10T13:15:00Z</timestamp>
      <contributor><ip>10.0.0.1</ip></contributor>
      <text deleted="deleted" />
    </revision>`

func TestParse_Full(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(fullRev))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.ID != 21 || r.ParentID != 20 || !r.HasParent() {
		t.Fatalf("ids = %d/%d", r.ID, r.ParentID)
	}
	if !r.Timestamp.Equal(time.Date(2004, 5, 10, 13, 15, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %v", r.Timestamp)
	}
	if r.Contributor.Username != "Example" || r.Contributor.ID != 77 || r.Contributor.Anonymous() {
		t.Fatalf("contributor = %+v", r.Contributor)
	}
	if !r.Minor || r.Comment != "fix & tidy" || r.Text != "Hello World" || r.TextDeleted {
		t.Fatalf("body = %+v", r)
	}
	if r.SHA1 != "abc123" || r.Model != "wikitext" || r.Format != "text/x-wiki" {
		t.Fatalf("meta = %q %q %q", r.SHA1, r.Model, r.Format)
	}
}

func TestParse_AnonymousAndDeletedText(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(anonRev))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.HasParent() || r.ParentID != 0 {
		t.Fatalf("parent = %d", r.ParentID)
	}
	if !r.Contributor.Anonymous() || r.Contributor.IP != "10.0.0.1" {
		t.Fatalf("contributor = %+v", r.Contributor)
	}
	if !r.TextDeleted || r.Text != "" || r.Minor {
		t.Fatalf("text = %+v", r)
	}
}

func TestParse_Partial(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(fullRev), FieldID, FieldParentID)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.ID != 21 || r.ParentID != 20 {
		t.Fatalf("ids = %d/%d", r.ID, r.ParentID)
	}
	if r.Text != "" || r.Comment != "" {
		t.Fatalf("partial parse read unrequested fields")
	}

	// the contributor <id> must not be mistaken for the revision id
	r, err = Parse([]byte(`<revision><contributor><id>9</id></contributor><id>3</id></revision>`), FieldID)
	if err != nil || r.ID != 3 {
		t.Fatalf("id = %d err=%v", r.ID, err)
	}

	r, err = Parse([]byte(anonRev), FieldID, FieldParentID)
	if err != nil || r.ID != 5 || r.ParentID != 0 {
		t.Fatalf("anon partial = %+v err=%v", r, err)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		raw    string
		fields []Field
	}{
		{"empty", "", nil},
		{"empty partial", "", []Field{FieldID}},
		{"not xml", "garbage", nil},
		{"truncated", "<revision><id>1</id><text>abc", nil},
		{"no id", "<revision><parentid>1</parentid></revision>", nil},
		{"no id partial", "<revision><parentid>1</parentid></revision>", []Field{FieldID, FieldParentID}},
		{"bad id", "<revision><id>x1</id></revision>", nil},
		{"bad parent partial", "<revision><id>2</id><parentid>-</parentid></revision>", []Field{FieldID, FieldParentID}},
		{"wrong root", "<page><id>1</id></page>", nil},
		{"wrong root partial", "<page><id>1</id></page>", []Field{FieldID}},
		{"bad timestamp", "<revision><id>1</id><timestamp>yesterday</timestamp></revision>", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.raw), c.fields...)
			if err == nil {
				t.Fatalf("want error")
			}
			if !perr.IsCode(err, perr.ErrorCodeMalformed) {
				t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
			}
		})
	}
}

func TestPeekID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{fullRev, 21, true},
		{"<revision><id> 42 </id></revision>", 42, true},
		{"<revision></revision>", 0, false},
		{"<revision><id>12", 0, false},
		{"<revision><id></id></revision>", 0, false},
		{"<revision><id>1a</id></revision>", 0, false},
		{"<revision><id>1234567890123456789</id></revision>", 0, false},
	}
	for _, c := range cases {
		got, ok := PeekID([]byte(c.raw))
		if got != c.want || ok != c.ok {
			t.Fatalf("PeekID(%q) = %d,%v want %d,%v", c.raw, got, ok, c.want, c.ok)
		}
	}
}

func TestPeekID_DoesNotAllocate(t *testing.T) {
	raw := []byte(fullRev)
	allocs := testing.AllocsPerRun(100, func() { _, _ = PeekID(raw) })
	if allocs != 0 {
		t.Fatalf("allocs = %v", allocs)
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Label
	}{
		{"R", LabelRegular},
		{"r", LabelRegular},
		{" regular ", LabelRegular},
		{"V", LabelVandalism},
		{"Vandalism", LabelVandalism},
	}
	for _, c := range cases {
		got, err := ParseLabel(c.in)
		if err != nil || got != c.want {
			t.Fatalf("ParseLabel(%q) = %v,%v", c.in, got, err)
		}
	}
	if _, err := ParseLabel("x"); !perr.IsCode(err, perr.ErrorCodeMalformed) {
		t.Fatalf("want malformed, got %v", err)
	}
	if LabelVandalism.String() != "V" || LabelVandalism.Long() != "vandalism" {
		t.Fatal("vandalism names")
	}
	if LabelRegular.String() != "R" || LabelRegular.Long() != "regular" {
		t.Fatal("regular names")
	}
	var zero Label
	if zero.Valid() || zero.String() != "?" || !LabelRegular.Valid() {
		t.Fatal("zero label")
	}
}
