package revision

import "bytes"

var (
	idOpen  = []byte("<id>")
	idClose = []byte("</id>")
)

// PeekID returns the value of the first <id> element in raw without parsing XML
// in a dump revision the first <id> is the revision id since <contributor> follows it
func PeekID(raw []byte) (int64, bool) {
	i := bytes.Index(raw, idOpen)
	if i < 0 {
		return 0, false
	}
	rest := raw[i+len(idOpen):]
	j := bytes.Index(rest, idClose)
	if j < 0 {
		return 0, false
	}
	digits := bytes.TrimSpace(rest[:j])
	if len(digits) == 0 || len(digits) > 18 {
		return 0, false
	}
	var n int64
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}
