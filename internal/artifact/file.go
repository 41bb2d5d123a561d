package artifact

import (
	"context"
	"os"
	"path/filepath"
)

// FileStore reads artifacts from the local filesystem. Relative locations
// are resolved against Root; absolute ones are used as is.
type FileStore struct {
	kindStore
	Root string
}

// NewFileStore creates a store rooted at root.
func NewFileStore(root string) *FileStore {
	s := &FileStore{Root: root}
	s.kindStore = kindStore{fetch: s.read}
	return s
}

func (s *FileStore) read(ctx context.Context, _ Kind, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := location
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, path)
	}
	return os.ReadFile(path)
}
