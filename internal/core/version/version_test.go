package version

import (
	"runtime"
	"testing"
)

func TestInfo(t *testing.T) {
	t.Parallel()

	bi := Info("wvd-map")
	if bi.Service != "wvd-map" || bi.Version != "dev" || bi.Commit != "none" || bi.Date != "unknown" {
		t.Fatalf("info = %+v", bi)
	}
	if bi.Go != runtime.Version() {
		t.Fatalf("go = %q", bi.Go)
	}
}
