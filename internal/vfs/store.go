package vfs

// Store is an ordered collection of virtual files with an active-file
// pointer for editor focus.
//
// Invariants: the store always contains at least one file, and exactly one
// file named RootName. Files keep insertion order. The zero Store is not
// usable; construct with New.
//
// A Store has a single logical owner and performs no locking of its own.
type Store struct {
	files  []VirtualFile
	active string
}

// New creates a store from the given files. The file set must be non-empty
// and contain exactly one root markup file. Files without an ID are assigned
// one. The active pointer starts at the root file.
func New(files ...VirtualFile) (*Store, error) {
	if len(files) == 0 {
		return nil, ErrEmpty
	}

	owned := make([]VirtualFile, len(files))
	copy(owned, files)

	roots := 0
	for i := range owned {
		if err := ValidateName(owned[i].Name); err != nil {
			return nil, err
		}
		if owned[i].ID == "" {
			owned[i] = NewFile(owned[i].Name, owned[i].Language, owned[i].Content)
		}
		if owned[i].IsRoot() {
			roots++
		}
	}
	switch {
	case roots == 0:
		return nil, ErrNoRoot
	case roots > 1:
		return nil, ErrDuplicateRoot
	}

	s := &Store{files: owned}
	s.active = s.Root().ID
	return s, nil
}

// Len returns the number of files.
func (s *Store) Len() int { return len(s.files) }

// Files returns copies of all files in insertion order.
func (s *Store) Files() []VirtualFile {
	out := make([]VirtualFile, len(s.files))
	copy(out, s.files)
	return out
}

// File returns the file with the given ID.
func (s *Store) File(id string) (VirtualFile, error) {
	i := s.index(id)
	if i < 0 {
		return VirtualFile{}, ErrNotFound
	}
	return s.files[i], nil
}

// Root returns the root markup file.
func (s *Store) Root() VirtualFile {
	for _, f := range s.files {
		if f.IsRoot() {
			return f
		}
	}
	// Unreachable while the construction invariant holds.
	return VirtualFile{}
}

// Active returns the file the editor currently focuses.
func (s *Store) Active() VirtualFile {
	if i := s.index(s.active); i >= 0 {
		return s.files[i]
	}
	return s.Root()
}

// SetActive moves editor focus to the file with the given ID.
func (s *Store) SetActive(id string) error {
	if s.index(id) < 0 {
		return ErrNotFound
	}
	s.active = id
	return nil
}

// Create appends a new file. The language is inferred from the name's
// extension; the name is fixed at creation (there is no rename operation).
// Creating a second root markup file is rejected.
func (s *Store) Create(name, content string) (VirtualFile, error) {
	if err := ValidateName(name); err != nil {
		return VirtualFile{}, err
	}
	if name == RootName {
		return VirtualFile{}, ErrDuplicateRoot
	}

	f := NewFile(name, LanguageForName(name), content)
	s.files = append(s.files, f)
	return f, nil
}

// UpdateContent replaces the content of the file with the given ID.
func (s *Store) UpdateContent(id, content string) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.files[i].Content = content
	return nil
}

// Delete removes the file with the given ID. Deleting the last remaining
// file or the root markup file is refused and leaves the store unchanged.
func (s *Store) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	if len(s.files) == 1 {
		return ErrLastFile
	}
	if s.files[i].IsRoot() {
		return ErrRootFile
	}

	deleted := s.files[i].ID
	s.files = append(s.files[:i], s.files[i+1:]...)
	if s.active == deleted {
		s.active = s.Root().ID
	}
	return nil
}

func (s *Store) index(id string) int {
	for i, f := range s.files {
		if f.ID == id {
			return i
		}
	}
	return -1
}
