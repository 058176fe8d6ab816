package port

// DocumentSource locates and reads the single source document.
type DocumentSource interface {
	// Resolve expands pattern to exactly one document path.
	Resolve(pattern string) (string, error)

	Read(path string) (Document, error)
}

type Document struct {
	ID       string // path relative to the source root
	Path     string
	Text     string
	Checksum string // hex sha256 of the raw bytes
}
