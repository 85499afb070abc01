package action

import (
	"strings"
	"unicode/utf8"
)

const (
	excerptMaxLines = 20
	excerptMaxBytes = 2048
)

// excerpt keeps the tail of a stream: the last excerptMaxLines non-empty lines,
// capped at excerptMaxBytes.
func excerpt(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r ")
		if l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > excerptMaxLines {
		kept = kept[len(kept)-excerptMaxLines:]
	}

	out := strings.Join(kept, "\n")
	if len(out) > excerptMaxBytes {
		out = out[len(out)-excerptMaxBytes:]
		for len(out) > 0 && !utf8.RuneStart(out[0]) {
			out = out[1:]
		}
		out = "..." + out
	}
	return out
}
