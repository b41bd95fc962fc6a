package physical

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomirror/photomirror/fileutils"
	"github.com/photomirror/photomirror/mirror"
)

type fakeStore struct {
	mu      sync.Mutex
	tasks   []mirror.CopyTask
	copied  []string
	markErr error
}

func (s *fakeStore) UncopiedFiles(context.Context) ([]mirror.CopyTask, error) {
	return s.tasks, nil
}

func (s *fakeStore) MarkCopied(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	s.copied = append(s.copied, key)
	return nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	result  mirror.FetchResult
	err     error
}

func (f *fakeFetcher) FetchResource(_ context.Context, assetID string, _ mirror.FileKind, _ string, destPath string) (mirror.FetchResult, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, assetID)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.result == mirror.FetchCopied {
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(destPath, []byte("bytes"), 0o644); err != nil {
			return "", err
		}
	}
	return f.result, nil
}

func copyTask(key, assetID string, size int64) mirror.CopyTask {
	return mirror.CopyTask{
		File: mirror.File{
			Key:          key,
			Kind:         mirror.FileImage,
			OriginalName: key + ".jpg",
			Size:         size,
			TargetDir:    "2024/2024-01",
			FileName:     key + ".jpg",
		},
		AssetID: assetID,
	}
}

func TestCopier_CopiesAndMarks(t *testing.T) {
	root := t.TempDir()
	store := &fakeStore{tasks: []mirror.CopyTask{
		copyTask("f1", "a1", 10),
		copyTask("f2", "a2", 10),
	}}
	fetcher := &fakeFetcher{result: mirror.FetchCopied}
	c := NewCopier(root, fetcher, store, fileutils.OSFilesystem(), zerolog.Nop(), WithWorkers(2))

	stats, err := c.CopyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Copied)
	assert.ElementsMatch(t, []string{"f1", "f2"}, store.copied)
	assert.FileExists(t, filepath.Join(root, "2024", "2024-01", "f1.jpg"))
}

func TestCopier_ExistingDestinationStillMarked(t *testing.T) {
	store := &fakeStore{tasks: []mirror.CopyTask{copyTask("f1", "a1", 10)}}
	fetcher := &fakeFetcher{result: mirror.FetchExists}
	c := NewCopier(t.TempDir(), fetcher, store, fileutils.OSFilesystem(), zerolog.Nop())

	stats, err := c.CopyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Existed)
	assert.Equal(t, []string{"f1"}, store.copied)
}

func TestCopier_RemovedUpstreamNotMarked(t *testing.T) {
	store := &fakeStore{tasks: []mirror.CopyTask{copyTask("f1", "a1", 10)}}
	fetcher := &fakeFetcher{result: mirror.FetchRemoved}
	c := NewCopier(t.TempDir(), fetcher, store, fileutils.OSFilesystem(), zerolog.Nop())

	stats, err := c.CopyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Empty(t, store.copied, "a vanished resource must stay uncopied for reconciliation")
}

func TestCopier_FailureLeavesFileForRetry(t *testing.T) {
	store := &fakeStore{tasks: []mirror.CopyTask{
		copyTask("f1", "a1", 10),
		copyTask("f2", "a2", 10),
	}}
	fetcher := &fakeFetcher{err: errors.New("source io error")}
	c := NewCopier(t.TempDir(), fetcher, store, fileutils.OSFilesystem(), zerolog.Nop())

	stats, err := c.CopyAll(context.Background())
	require.NoError(t, err, "per-file failures must not fail the pass")
	assert.Equal(t, 2, stats.Failed)
	assert.Empty(t, store.copied)
}

func TestCopier_MaxBytesSkipsLargeFiles(t *testing.T) {
	store := &fakeStore{tasks: []mirror.CopyTask{
		copyTask("small", "a1", 10),
		copyTask("large", "a2", 1000),
	}}
	fetcher := &fakeFetcher{result: mirror.FetchCopied}
	c := NewCopier(t.TempDir(), fetcher, store, fileutils.OSFilesystem(), zerolog.Nop(), WithMaxFileBytes(100))

	stats, err := c.CopyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Copied)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []string{"a1"}, fetcher.fetched)
}

func TestCopier_DryRunTouchesNothing(t *testing.T) {
	store := &fakeStore{tasks: []mirror.CopyTask{copyTask("f1", "a1", 10)}}
	fetcher := &fakeFetcher{result: mirror.FetchCopied}
	c := NewCopier(t.TempDir(), fetcher, store, fileutils.DryRunFilesystem(), zerolog.Nop(), WithCopyDryRun(true))

	stats, err := c.CopyAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Copied)
	assert.Empty(t, fetcher.fetched)
	assert.Empty(t, store.copied)
}

func TestRemoveFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "2024", "2024-01", "f1.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("bytes"), 0o644))

	files := []mirror.File{
		{Key: "f1", TargetDir: "2024/2024-01", FileName: "f1.jpg", WasCopied: true},
		{Key: "f2", TargetDir: "2024/2024-01", FileName: "gone.jpg", WasCopied: true},
		{Key: "f3", TargetDir: "2024/2024-01", FileName: "never.jpg"},
	}
	removed := RemoveFiles(root, files, fileutils.OSFilesystem(), zerolog.Nop())

	assert.Equal(t, 3, removed, "missing and never-copied files are not errors")
	assert.NoFileExists(t, path)
}
