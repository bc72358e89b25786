package backend

import "strings"

// StripFences removes a Markdown code fence wrapped around a model response.
// Providers are asked for raw output but wrap it in ```html ... ``` blocks
// anyway often enough that every caller has to cope. The first fence opens
// the block, the last fence closes it; prose outside the fence is dropped.
// Responses without a fence pass through trimmed. An unterminated fence
// keeps everything after the opening line so a truncated response still
// reaches validation instead of vanishing.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		// A fence that never opens a line is not a wrapper.
		return s
	}
	rest = rest[nl+1:]
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
