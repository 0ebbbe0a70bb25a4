package module

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/availability"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	phttp "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/net/http"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/testkit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"

	"github.com/go-chi/chi/v5"
)

const prefix = "TEST_EXTRACT_"

const dumpXML = `<mediawiki><page><title>Example</title><id>1</id>
<revision><id>20</id><timestamp>2004-05-10T13:10:00Z</timestamp>
<contributor><username>Alice</username><id>3</id></contributor>
<text xml:space="preserve">The city lies on the river.</text></revision>
<revision><id>21</id><parentid>20</parentid><timestamp>2004-05-10T13:15:00Z</timestamp>
<contributor><ip>10.0.0.1</ip></contributor>
<text xml:space="preserve">The city lies on the river. YOU SUCK lol</text></revision>
</page></mediawiki>
`

type memSink struct {
	mu   sync.Mutex
	recs []domain.Record
}

func (s *memSink) Name() string { return "mem" }
func (s *memSink) Write(_ context.Context, rs []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rs...)
	return nil
}
func (s *memSink) Close(context.Context) error { return nil }

func newModule(t *testing.T, opts ...modkit.Option) (*Module, error) {
	t.Helper()
	deps := modkit.Deps{Cfg: config.New()}
	return New(context.Background(), deps, append([]modkit.Option{modkit.WithPrefix(prefix)}, opts...)...)
}

func TestModule_EndToEnd(t *testing.T) {
	testkit.Serial(t)

	idx := testkit.WriteFile(t, "revisions.csv", "page_id,revision_id,simple_vandalism\n1,20,R\n1,21,V\n")
	t.Setenv(prefix+"INDEX_PATH", idx)
	t.Setenv(prefix+"FEATURES", "anonymity, comment_length")
	t.Setenv(prefix+"PARTITIONS", "3")

	sink := &memSink{}
	m, err := newModule(t, modkit.WithPorts(sink), modkit.WithName("extract-test"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "extract-test" {
		t.Fatalf("name = %q", m.Name())
	}
	ports := modkit.MustPortsOf[domain.JobPort](m)
	p := m.Ports().(Ports)
	if p.Index.Len() != 2 || len(p.Features) != 2 || p.Features[1] != "comment length" {
		t.Fatalf("ports = %+v", p)
	}

	sum, err := ports.Run(context.Background(), []string{testkit.WriteFile(t, "dump.xml", dumpXML)})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Outputs != 1 || len(sink.recs) != 1 {
		t.Fatalf("summary=%+v records=%d", sum, len(sink.recs))
	}
	got := sink.recs[0]
	if got.Format(",") != "1,20,21,V,1,0" {
		t.Fatalf("record = %q", got.Format(","))
	}

	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var snap domain.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.RunID != sum.RunID || snap.Outputs != 1 || snap.Reduce["emitted"] != 1 {
		t.Fatalf("stats = %+v", snap)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestModule_InjectedIndex(t *testing.T) {
	testkit.Serial(t)

	b := availability.NewBuilder()
	_ = b.Add(5, availability.Entry{PageID: 9, Label: revision.LabelRegular})
	m, err := newModule(t, modkit.WithPorts(b.Build()))
	if err != nil {
		t.Fatalf("an injected index needs no INDEX_PATH: %v", err)
	}
	if m.Ports().(Ports).Index.Len() != 1 {
		t.Fatal("injected index not used")
	}
	if m.Options().Delimiter != "comma" || m.Options().Partitions != 8 {
		t.Fatalf("defaults = %+v", m.Options())
	}
}

func TestModule_ConfigErrors(t *testing.T) {
	testkit.Serial(t)

	idx := testkit.WriteFile(t, "revisions.csv", "page_id,revision_id,label\n1,20,R\n")
	cases := []struct {
		name  string
		env   map[string]string
		code  perr.ErrorCode
		field string
	}{
		{"missing index path", map[string]string{}, perr.ErrorCodeValidation, "INDEX_PATH"},
		{"bad delimiter", map[string]string{"INDEX_PATH": idx, "DELIMITER": "pipe"}, perr.ErrorCodeValidation, "DELIMITER"},
		{"bad source", map[string]string{"INDEX_PATH": idx, "INDEX_SOURCE": "s3"}, perr.ErrorCodeValidation, "INDEX_SOURCE"},
		{"bad level", map[string]string{"INDEX_PATH": idx, "COMPRESSION_LEVEL": "12"}, perr.ErrorCodeValidation, "COMPRESSION_LEVEL"},
		{"unreadable index", map[string]string{"INDEX_PATH": idx + ".missing"}, perr.ErrorCodeConfig, ""},
		{"unknown feature", map[string]string{"INDEX_PATH": idx, "FEATURES": "shoe size"}, perr.ErrorCodeConfig, "FEATURES"},
		{"pg index without pg", map[string]string{"INDEX_SOURCE": "pg"}, perr.ErrorCodeConfig, "INDEX_SOURCE"},
		{"pg sink without pg", map[string]string{"INDEX_PATH": idx, "SINK_PG": "true"}, perr.ErrorCodeConfig, "SINK_PG"},
		{"ch sink without ch", map[string]string{"INDEX_PATH": idx, "SINK_CH": "true"}, perr.ErrorCodeConfig, "SINK_CH"},
		{"lease without pg", map[string]string{"INDEX_PATH": idx, "LEASE": "true"}, perr.ErrorCodeConfig, "LEASE"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for k, v := range c.env {
				t.Setenv(prefix+k, v)
			}
			_, err := newModule(t)
			if !perr.IsCode(err, c.code) {
				t.Fatalf("want %v, got %v", c.code, err)
			}
			if c.field != "" {
				e, _ := perr.As(err)
				if e.Field() != c.field {
					t.Fatalf("field = %q, want %q", e.Field(), c.field)
				}
			}
		})
	}
}
