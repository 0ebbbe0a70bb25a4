package ch

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo describes this process in system.query_log
// role examples: "wvd-extract", "wvd-reduce"
func BuildClientInfo(role string) clickhouse.ClientInfo {
	type product = struct{ Name, Version string }

	return clickhouse.ClientInfo{Products: []product{
		{Name: "wvd", Version: vcsShortSHA()},
		{Name: "role", Version: orUnknown(role)},
		{Name: "go", Version: runtime.Version()},
	}}
}

func vcsShortSHA() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
