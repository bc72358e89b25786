package bundle

import "strings"

// The scanner locates element blocks with plain string matching. HTML tag
// names are ASCII, so case folding stays byte-for-byte and never shifts
// offsets. Anything the scanner cannot pair up (an open tag with no close)
// is treated as absent rather than an error.

// block is one located element block within a document.
type block struct {
	start int    // index of the opening '<'
	inner string // text between the open tag's '>' and the closing tag
	end   int    // index just past the closing tag's '>'
	attrs string // raw open-tag text after the tag name
}

// findBlock locates the first <tag ...>...</tag> block at or after from.
func findBlock(doc, tag string, from int) (block, bool) {
	open := "<" + tag
	for i := from; i < len(doc); {
		rel := foldIndex(doc[i:], open)
		if rel < 0 {
			return block{}, false
		}
		start := i + rel
		after := start + len(open)
		if after >= len(doc) || !tagBoundary(doc[after]) {
			// A longer tag name, e.g. <styles>. Keep scanning.
			i = start + 1
			continue
		}

		gt := strings.IndexByte(doc[after:], '>')
		if gt < 0 {
			return block{}, false
		}
		openEnd := after + gt + 1

		closeRel := foldIndex(doc[openEnd:], "</"+tag)
		if closeRel < 0 {
			return block{}, false
		}
		closeStart := openEnd + closeRel
		closeGT := strings.IndexByte(doc[closeStart:], '>')
		if closeGT < 0 {
			return block{}, false
		}

		return block{
			start: start,
			inner: doc[openEnd:closeStart],
			end:   closeStart + closeGT + 1,
			attrs: doc[after : openEnd-1],
		}, true
	}
	return block{}, false
}

// tagBoundary reports whether b may legally follow a tag name.
func tagBoundary(b byte) bool {
	switch b {
	case '>', '/', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// hasAttr reports whether the open-tag text contains the named attribute as
// a whole word (valued or bare).
func hasAttr(attrs, name string) bool {
	for i := 0; i < len(attrs); {
		rel := foldIndex(attrs[i:], name)
		if rel < 0 {
			return false
		}
		at := i + rel
		before := at == 0 || isAttrSpace(attrs[at-1])
		afterIdx := at + len(name)
		after := afterIdx >= len(attrs) || attrs[afterIdx] == '=' || isAttrSpace(attrs[afterIdx])
		if before && after {
			return true
		}
		i = at + 1
	}
	return false
}

func isAttrSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '/':
		return true
	}
	return false
}

// foldIndex is strings.Index with ASCII case folding.
func foldIndex(s, sub string) int {
	if sub == "" {
		return 0
	}
	if len(sub) > len(s) {
		return -1
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if foldEqual(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func foldEqual(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
