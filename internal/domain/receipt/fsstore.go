package receipt

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// FSStore is a filesystem-backed ObjectStore. Suitable for single-node
// deployments where receipts live on a mounted volume; swap in an object
// storage client behind the same interface for anything bigger.
type FSStore struct {
	dir     string
	baseURL string
}

// NewFSStore creates the storage directory if needed. baseURL is prepended
// to stored file names to form the returned reference.
func NewFSStore(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create receipt dir")
	}
	return &FSStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put streams r to a uniquely named file. The random prefix keeps a repeat
// upload attempt from silently overwriting an earlier file.
func (s *FSStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	name := uuid.New().String() + "-" + filepath.Base(key)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create receipt file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrap(err, "write receipt file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close receipt file")
	}

	if s.baseURL == "" {
		return name, nil
	}
	return s.baseURL + "/" + name, nil
}
