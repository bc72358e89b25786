package bundle

import (
	"strings"

	"github.com/mockbird/mockbird/internal/vfs"
)

// markerAttr tags the blocks Document injects so a later Document call can
// replace them instead of stacking another copy. Blocks without the marker
// are never touched.
const markerAttr = "data-mockbird"

// Document assembles the previewable document from a project's files.
//
// The base is the content of the file named index.html, verbatim (empty if
// absent). The contents of all style files, in store order, are joined with
// newlines and injected as one marked style block before </head>; script
// files likewise before </body>. When the closing tag is missing the block
// is appended to the end of the document instead. Empty payloads inject
// nothing, so a store with only a root file bundles to the root content
// byte-for-byte.
//
// Re-bundling first removes the marked blocks a previous call injected,
// which makes Document∘Extract reach a fixed point after one cycle: saved
// documents do not grow another copy of each block per save. Unmarked
// blocks that the root embeds on its own are preserved verbatim, including
// any the extraction also lifted into a separate file.
func Document(files []vfs.VirtualFile) string {
	var root string
	haveRoot := false
	var styles, scripts []string

	for _, f := range files {
		switch {
		case !haveRoot && f.Name == vfs.RootName:
			root = f.Content
			haveRoot = true
		case f.Language == vfs.Style:
			styles = append(styles, f.Content)
		case f.Language == vfs.Script:
			scripts = append(scripts, f.Content)
		}
	}

	doc := root
	if css := strings.Join(styles, "\n"); css != "" {
		doc = stripMarked(doc, "style")
		doc = inject(doc, "style", css, "</head>")
	}
	if js := strings.Join(scripts, "\n"); js != "" {
		doc = stripMarked(doc, "script")
		doc = inject(doc, "script", js, "</body>")
	}
	return doc
}

// inject inserts a marked block before the first occurrence of closer, or
// appends it when the document has no such tag. The payload is wrapped
// without added whitespace so extraction returns it unchanged.
func inject(doc, tag, payload, closer string) string {
	blockText := "<" + tag + " " + markerAttr + ">" + payload + "</" + tag + ">"
	if i := foldIndex(doc, closer); i >= 0 {
		return doc[:i] + blockText + doc[i:]
	}
	return doc + blockText
}

// stripMarked removes every marker-attributed block of the given tag.
func stripMarked(doc, tag string) string {
	var out strings.Builder
	from := 0
	for {
		b, ok := findBlock(doc, tag, from)
		if !ok {
			break
		}
		if hasAttr(b.attrs, markerAttr) {
			out.WriteString(doc[from:b.start])
		} else {
			out.WriteString(doc[from:b.end])
		}
		from = b.end
	}
	if from == 0 {
		return doc
	}
	out.WriteString(doc[from:])
	return out.String()
}
