package auth

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// FileStore persists uploaded documents under a category/owner partition and
// returns a relative path suitable for later retrieval.
type FileStore interface {
	Store(file *multipart.FileHeader, category, ownerID string) (string, error)
	Resolve(relativePath string) string
}

// DiskFileStore writes uploads under a root directory, one subdirectory per
// category and owner id, with collision-free generated filenames.
type DiskFileStore struct {
	root string
}

var _ FileStore = (*DiskFileStore)(nil)

// NewDiskFileStore creates a store rooted at dir
func NewDiskFileStore(dir string) *DiskFileStore {
	return &DiskFileStore{root: dir}
}

// Store writes the uploaded file and returns its relative path. The relative
// path uses forward slashes regardless of platform so it can be stored and
// served as-is.
func (s *DiskFileStore) Store(file *multipart.FileHeader, category, ownerID string) (string, error) {
	if file == nil || file.Size == 0 {
		return "", goerrors.New("no file content provided", goerrors.CategoryBadInput)
	}

	if strings.ContainsAny(category, `/\`) || strings.ContainsAny(ownerID, `/\`) {
		return "", goerrors.New("invalid storage partition", goerrors.CategoryBadInput)
	}

	targetDir := filepath.Join(s.root, category, ownerID)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create upload directory")
	}

	filename := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))

	src, err := file.Open()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to open uploaded file")
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(targetDir, filename))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create stored file")
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write stored file")
	}

	if err := dst.Close(); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to flush stored file")
	}

	return path.Join(category, ownerID, filename), nil
}

// Resolve maps a relative path returned by Store to an absolute path
func (s *DiskFileStore) Resolve(relativePath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relativePath))
}

func (s *DiskFileStore) String() string {
	return fmt.Sprintf("DiskFileStore(%s)", s.root)
}
