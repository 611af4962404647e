package supervise

import (
	"regexp"
)

type Finding struct {
	Kind string `json:"kind"`
	Line string `json:"line"`
}

var signatures = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"oom", regexp.MustCompile(`(?i)out of memory|oom[- ]?kill|cannot allocate memory|killed process`)},
	{"permission", regexp.MustCompile(`(?i)permission denied|operation not permitted|\beacces\b|read-only file system`)},
	{"network", regexp.MustCompile(`(?i)connection refused|no route to host|network is unreachable|could not resolve|name or service not known|address already in use`)},
}

// Diagnose reports the first log line matching each known failure signature.
// The result is informational only.
func Diagnose(lines []string) []Finding {
	var out []Finding
	for _, sig := range signatures {
		for _, l := range lines {
			if sig.re.MatchString(l) {
				out = append(out, Finding{Kind: sig.kind, Line: l})
				break
			}
		}
	}
	return out
}
