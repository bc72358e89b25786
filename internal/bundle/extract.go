// Package bundle converts between a project's virtual files and the single
// self-contained document the preview renders.
//
// Document and Extract are pure functions and never fail: malformed markup
// degrades to the root-only forms rather than erroring. Extraction pulls out
// only the first style block and the first inline script block; further
// blocks stay embedded in the root file's verbatim content, where they still
// render but are not separately editable.
package bundle

import "github.com/mockbird/mockbird/internal/vfs"

// Extract partitions a document into virtual files.
//
// The first file is always the root markup file and carries the entire input
// verbatim, so the root alone can reconstruct a working preview even when
// block extraction finds nothing. When present, the first style block
// becomes styles.css and the first script block without a src attribute
// becomes script.js, both with their inner text untouched.
func Extract(doc string) []vfs.VirtualFile {
	files := []vfs.VirtualFile{vfs.NewFile(vfs.RootName, vfs.Markup, doc)}

	if b, ok := findBlock(doc, "style", 0); ok {
		files = append(files, vfs.NewFile(vfs.StyleName, vfs.Style, b.inner))
	}
	if b, ok := firstInlineScript(doc); ok {
		files = append(files, vfs.NewFile(vfs.ScriptName, vfs.Script, b.inner))
	}
	return files
}

// firstInlineScript finds the first script block that does not reference an
// external source. Externally sourced scripts are skipped, not extracted.
func firstInlineScript(doc string) (block, bool) {
	for from := 0; ; {
		b, ok := findBlock(doc, "script", from)
		if !ok {
			return block{}, false
		}
		if !hasAttr(b.attrs, "src") {
			return b, true
		}
		from = b.end
	}
}
