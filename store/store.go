// Package store persists export files on the local filesystem.
package store

import (
	"io"
	"os"
	"path/filepath"
)

// ExportStore is the sink scrape exports are written to.
type ExportStore interface {
	// List returns the names of all stored exports.
	List() ([]string, error)

	Contains(name string) (bool, error)

	Store(name string, content io.Reader) error

	// Get returns a reader for the export with the given name. The caller is
	// responsible for closing the reader!
	Get(name string) (io.ReadCloser, error)

	// Path returns the path of a stored export.
	Path(name string) string
}

// FileStore keeps exports as plain files in a data directory.
type FileStore struct {
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		dataDir: dataDir,
	}
}

func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

func (fs *FileStore) Contains(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(fs.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (fs *FileStore) Store(name string, content io.Reader) error {
	file, err := os.Create(filepath.Join(fs.dataDir, name))
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, content)
	return err
}

func (fs *FileStore) Get(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(fs.dataDir, name))
}

func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dataDir, name)
}
