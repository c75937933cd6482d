package interfaces

// Reader reads data.
type Reader interface {
	// Read returns the next chunk.
	Read() ([]byte, error)
}

// ReadCloser reads data and releases resources.
type ReadCloser interface {
	Reader
	Close() error // Close releases resources.
}

type (
	// File is an open file.
	File struct{}

	// Dir is an open directory.
	Dir struct{}
)

// Read implements Reader.
func (f *File) Read() ([]byte, error) {
	return nil, nil
}

// Close implements ReadCloser.
func (f *File) Close() error {
	return nil
}

// List returns the entries.
func (d Dir) List() []string {
	return nil
}
