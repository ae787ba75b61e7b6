package render

import (
	"strings"
	"unicode"
)

var texReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
	`<`, `\textless{}`,
	`>`, `\textgreater{}`,
	`|`, `\textbar{}`,
	`[`, `{[}`,
	`]`, `{]}`,
)

// EscapeTeX makes s safe to place in LaTeX text mode. Control characters are
// dropped and line breaks collapse to single spaces.
func EscapeTeX(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return texReplacer.Replace(cleaned)
}

func escapeAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if e := EscapeTeX(item); e != "" {
			out = append(out, e)
		}
	}
	return out
}
