package physical

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomirror/photomirror/fileutils"
	"github.com/photomirror/photomirror/mirror"
)

type fakeTree struct {
	folders   []mirror.Folder
	albums    []mirror.Album
	primaries map[string]mirror.File
}

func (f *fakeTree) LiveFolders(context.Context) ([]mirror.Folder, error) { return f.folders, nil }
func (f *fakeTree) LiveAlbums(context.Context) ([]mirror.Album, error)  { return f.albums, nil }

func (f *fakeTree) PrimaryFile(_ context.Context, assetID string) (mirror.File, bool, error) {
	file, ok := f.primaries[assetID]
	return file, ok, nil
}

func strPtr(s string) *string { return &s }

func TestLinker_Rebuild(t *testing.T) {
	filesRoot := t.TempDir()
	treeRoot := filepath.Join(t.TempDir(), "albums")

	tree := &fakeTree{
		folders: []mirror.Folder{
			{ID: "root", Name: "Library"},
			{ID: "2023", Name: "2023", ParentID: strPtr("root")},
		},
		albums: []mirror.Album{
			{ID: "al1", FolderID: "2023", Name: "Summer", AssetIDs: []string{"a2", "a1", "a3"}},
		},
		primaries: map[string]mirror.File{
			"a1": {Key: "f1", TargetDir: "2023/2023-07", FileName: "beach.jpg", WasCopied: true},
			"a2": {Key: "f2", TargetDir: "2023/2023-07", FileName: "surf.mp4", WasCopied: true},
			// a3 has no copied file yet.
		},
	}

	l := NewLinker(treeRoot, filesRoot, tree, tree, tree, fileutils.OSFilesystem(), zerolog.Nop())
	stats, err := l.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.Missing)
	assert.Zero(t, stats.Failed)

	albumDir := filepath.Join(treeRoot, "Library", "2023", "Summer")
	// Members link in sorted asset order with positional prefixes.
	first, err := os.Readlink(filepath.Join(albumDir, "001_beach.jpg"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filesRoot, "2023", "2023-07", "beach.jpg"), first)
	second, err := os.Readlink(filepath.Join(albumDir, "002_surf.mp4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filesRoot, "2023", "2023-07", "surf.mp4"), second)
}

func TestLinker_RebuildReplacesStaleTree(t *testing.T) {
	filesRoot := t.TempDir()
	treeRoot := filepath.Join(t.TempDir(), "albums")
	stale := filepath.Join(treeRoot, "Old", "stale.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	tree := &fakeTree{
		folders: []mirror.Folder{{ID: "root", Name: "Library"}},
		albums: []mirror.Album{
			{ID: "al1", FolderID: "root", Name: "Fresh", AssetIDs: []string{"a1"}},
		},
		primaries: map[string]mirror.File{
			"a1": {Key: "f1", TargetDir: "2024/2024-01", FileName: "new.jpg", WasCopied: true},
		},
	}

	l := NewLinker(treeRoot, filesRoot, tree, tree, tree, fileutils.OSFilesystem(), zerolog.Nop())
	stats, err := l.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.NoFileExists(t, stale, "the tree is disposable and fully regenerated")
	assert.FileExists(t, filepath.Join(treeRoot, "Library", "Fresh", "001_new.jpg"))
}

func TestLinker_EmptyMirror(t *testing.T) {
	tree := &fakeTree{}
	l := NewLinker(filepath.Join(t.TempDir(), "albums"), t.TempDir(), tree, tree, tree, fileutils.OSFilesystem(), zerolog.Nop())
	stats, err := l.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
}
