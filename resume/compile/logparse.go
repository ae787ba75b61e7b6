package compile

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxWarnings    = 20
	tailLines      = 20
	maxExcerptSize = 4096
)

var warningLine = regexp.MustCompile(`^(LaTeX Warning|LaTeX Font Warning|Package \S+ Warning|Overfull \\[hv]box|Underfull \\[hv]box)`)

// parseWarnings returns the warning lines of a TeX log, capped.
func parseWarnings(log string) []string {
	var out []string
	for _, line := range splitLines(log) {
		if warningLine.MatchString(line) {
			out = append(out, strings.TrimSpace(line))
			if len(out) == maxWarnings {
				break
			}
		}
	}
	return out
}

// firstError returns the first TeX error line ("! ..."), if any.
func firstError(log string) (string, bool) {
	for _, line := range splitLines(log) {
		if strings.HasPrefix(line, "!") {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

// excerpt keeps TeX error lines ("! ..." plus the line after) and a bounded
// tail of the log.
func excerpt(log string) string {
	lines := splitLines(log)
	var b strings.Builder
	for i, line := range lines {
		if strings.HasPrefix(line, "!") {
			b.WriteString(line)
			b.WriteByte('\n')
			if i+1 < len(lines) {
				b.WriteString(lines[i+1])
				b.WriteByte('\n')
			}
		}
	}
	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}
	if b.Len() > 0 && start < len(lines) {
		b.WriteString("...\n")
	}
	for _, line := range lines[start:] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	out := b.String()
	if len(out) > maxExcerptSize {
		cut := len(out) - maxExcerptSize
		for cut < len(out) && !utf8.RuneStart(out[cut]) {
			cut++
		}
		out = out[cut:]
	}
	return strings.TrimRight(out, "\n")
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
