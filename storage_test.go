package auth_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/solutionrh/go-auth"
)

func TestDiskFileStoreStore(t *testing.T) {
	store := auth.NewDiskFileStore(t.TempDir())

	header := makeFileHeader(t, "nineaDocument", "scan.PDF", "pdf-bytes")

	relative, err := store.Store(header, "ninea", "owner-1")
	require.NoError(t, err)

	parts := strings.Split(relative, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "ninea", parts[0])
	assert.Equal(t, "owner-1", parts[1])
	assert.True(t, strings.HasSuffix(parts[2], ".pdf"), "extension is preserved lowercased: %s", parts[2])

	content, err := os.ReadFile(store.Resolve(relative))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(content))
}

func TestDiskFileStoreUniqueNames(t *testing.T) {
	store := auth.NewDiskFileStore(t.TempDir())

	header := makeFileHeader(t, "doc", "same.pdf", "content")

	first, err := store.Store(header, "rccm", "owner-1")
	require.NoError(t, err)
	second, err := store.Store(header, "rccm", "owner-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDiskFileStoreRejectsMissingFile(t *testing.T) {
	store := auth.NewDiskFileStore(t.TempDir())

	_, err := store.Store(nil, "ninea", "owner-1")
	require.Error(t, err)
}

func TestDiskFileStoreRejectsPathSeparators(t *testing.T) {
	store := auth.NewDiskFileStore(t.TempDir())
	header := makeFileHeader(t, "doc", "scan.pdf", "content")

	_, err := store.Store(header, "../escape", "owner-1")
	require.Error(t, err)

	_, err = store.Store(header, "ninea", "../../etc")
	require.Error(t, err)
}

func TestDiskFileStoreResolve(t *testing.T) {
	root := t.TempDir()
	store := auth.NewDiskFileStore(root)

	resolved := store.Resolve("ninea/owner-1/file.pdf")
	assert.Equal(t, filepath.Join(root, "ninea", "owner-1", "file.pdf"), resolved)
}
