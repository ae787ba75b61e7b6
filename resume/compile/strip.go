package compile

import (
	"strings"

	"resume-tailor/resume/render"
)

// StripLastBlock removes the last BEGIN/END marked block from src, marker
// lines included. ok is false when src has no complete block.
func StripLastBlock(src string) (out string, name string, ok bool) {
	begin := strings.LastIndex("\n"+src, "\n"+render.BlockBeginPrefix)
	if begin < 0 {
		return src, "", false
	}
	lineEnd := strings.IndexByte(src[begin:], '\n')
	if lineEnd < 0 {
		return src, "", false
	}
	name = strings.TrimSpace(src[begin+len(render.BlockBeginPrefix) : begin+lineEnd])
	endMarker := render.BlockEndPrefix + name
	rel := strings.Index(src[begin:], "\n"+endMarker)
	if name == "" || rel < 0 {
		return src, "", false
	}
	stop := begin + rel + 1 + len(endMarker)
	if stop < len(src) && src[stop] == '\n' {
		stop++
	}
	return src[:begin] + src[stop:], name, true
}
