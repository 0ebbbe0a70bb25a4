// Package testkit provides testing helpers
package testkit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

// MustPanic asserts that fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic, got none")
		}
	}()
	fn()
}

// MustNotPanic asserts that fn does not panic
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	fn()
}

// MustContain asserts that haystack contains needle. On failure the haystack is written to a temp file
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		tmpfile := filepath.Join(t.TempDir(), "haystack.txt")
		_ = os.WriteFile(tmpfile, []byte(haystack), 0o600)
		t.Fatalf("expected output to contain %q\n\nfull output written to %s", needle, tmpfile)
	}
}

// WriteFile writes content to name inside a per-test temp dir and returns the full path
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return p
}

var seamMu sync.Mutex

// Swap swaps a package-level variable for the duration of the test and restores it after
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial makes the entire test run under a global lock, preventing interference
// when tests mutate package-level seams
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(func() { seamMu.Unlock() })
}

// Pair is one recorded emission
type Pair struct {
	Key   string
	Value string
}

// RecordingEmitter collects emitted key/value pairs; it satisfies the mapred Emitter contract.
// Err, when set, is returned from every Emit call and nothing is recorded
type RecordingEmitter struct {
	mu    sync.Mutex
	Pairs []Pair
	Err   error
}

// Emit records the pair
func (r *RecordingEmitter) Emit(key, value string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	r.Pairs = append(r.Pairs, Pair{Key: key, Value: value})
	r.mu.Unlock()
	return nil
}

// Len returns the number of recorded pairs
func (r *RecordingEmitter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Pairs)
}

// Values returns the recorded values for key in emission order
func (r *RecordingEmitter) Values(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.Pairs {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

// Lines renders each pair as "key<sep>value", sorted, for set comparisons
func (r *RecordingEmitter) Lines(sep string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		out = append(out, p.Key+sep+p.Value)
	}
	sort.Strings(out)
	return out
}

// MustEqualSets fails unless got and want hold the same strings, ignoring order
func MustEqualSets(t *testing.T, got, want []string) {
	t.Helper()
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	if fmt.Sprint(g) != fmt.Sprint(w) {
		t.Fatalf("set mismatch\n got: %q\nwant: %q", g, w)
	}
}
