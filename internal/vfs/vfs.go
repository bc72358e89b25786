// Package vfs holds the virtual source files of an open prototype.
//
// A project's editable state is a small ordered collection of named, typed
// text documents. Exactly one of them is the root markup document
// (index.html); together they define the previewable single-page app. The
// Store is owned by a single editor session and is not safe for concurrent
// use; the owner serializes access.
package vfs

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Canonical file names. Extraction always uses these; user-created files may
// use any valid name.
const (
	RootName   = "index.html"
	StyleName  = "styles.css"
	ScriptName = "script.js"
)

// MaxNameLength is the longest accepted file name.
const MaxNameLength = 255

// Language classifies a virtual file's content.
type Language string

const (
	Markup Language = "markup"
	Style  Language = "style"
	Script Language = "script"
)

// Valid reports whether l is one of the known languages.
func (l Language) Valid() bool {
	switch l {
	case Markup, Style, Script:
		return true
	}
	return false
}

// String returns the language name.
func (l Language) String() string { return string(l) }

// LanguageForName infers a language from a file name's extension.
// Unknown extensions default to markup.
func LanguageForName(name string) Language {
	switch strings.ToLower(path.Ext(name)) {
	case ".css":
		return Style
	case ".js", ".mjs":
		return Script
	default:
		return Markup
	}
}

// VirtualFile is one editable source document.
//
// ID is opaque and stable for the file's lifetime. Name carries the display
// name and extension and is not required to be unique, except that at most
// one file may be named RootName.
type VirtualFile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Language Language `json:"language"`
	Content  string   `json:"content"`
}

// NewFile creates a file with a fresh ID.
func NewFile(name string, lang Language, content string) VirtualFile {
	return VirtualFile{
		ID:       uuid.NewString(),
		Name:     name,
		Language: lang,
		Content:  content,
	}
}

// IsRoot reports whether the file is the root markup document.
func (f VirtualFile) IsRoot() bool { return f.Name == RootName }

// ValidateName checks that a file name is usable: non-empty, within
// MaxNameLength, a bare name without path separators or control bytes, and
// not a relative-path token.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if len(name) > MaxNameLength {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\") {
		return ErrInvalidName
	}
	if strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	if name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}
