package source

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/photomirror/photomirror/mirror"
)

// Memory is an in-memory library used by tests to script multi-run
// scenarios: assets, folders and albums can be mutated between runs and the
// whole source can be flipped unavailable.
type Memory struct {
	mu          sync.Mutex
	assets      []mirror.SourceAsset
	folders     []mirror.Folder
	albums      []mirror.Album
	content     map[string][]byte
	unavailable bool
}

func NewMemory() *Memory {
	return &Memory{content: map[string][]byte{}}
}

// Put adds or replaces one asset together with the bytes all of its
// resources serve.
func (m *Memory) Put(a mirror.SourceAsset, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.assets {
		if existing.Asset.ID == a.Asset.ID {
			m.assets[i] = a
			m.content[a.Asset.ID] = content
			return
		}
	}
	m.assets = append(m.assets, a)
	m.content[a.Asset.ID] = content
}

// Remove drops an asset from the observed set. Its bytes stay fetchable so
// in-flight copies of still-referenced files keep working.
func (m *Memory) Remove(assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.assets[:0]
	for _, a := range m.assets {
		if a.Asset.ID != assetID {
			kept = append(kept, a)
		}
	}
	m.assets = kept
}

func (m *Memory) SetFolders(folders ...mirror.Folder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders = folders
}

func (m *Memory) SetAlbums(albums ...mirror.Album) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums = albums
}

func (m *Memory) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = down
}

func (m *Memory) Assets(ctx context.Context) (iter.Seq[mirror.SourceAsset], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, fmt.Errorf("%w: memory source marked down", mirror.ErrSourceUnavailable)
	}
	snapshot := append([]mirror.SourceAsset(nil), m.assets...)
	return func(yield func(mirror.SourceAsset) bool) {
		for _, a := range snapshot {
			if ctx.Err() != nil {
				return
			}
			if !yield(a) {
				return
			}
		}
	}, nil
}

func (m *Memory) Folders(ctx context.Context) ([]mirror.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, fmt.Errorf("%w: memory source marked down", mirror.ErrSourceUnavailable)
	}
	return append([]mirror.Folder(nil), m.folders...), nil
}

func (m *Memory) Albums(ctx context.Context) ([]mirror.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, fmt.Errorf("%w: memory source marked down", mirror.ErrSourceUnavailable)
	}
	return append([]mirror.Album(nil), m.albums...), nil
}

func (m *Memory) FetchResource(_ context.Context, assetID string, _ mirror.FileKind, _ string, destPath string) (mirror.FetchResult, error) {
	m.mu.Lock()
	content, ok := m.content[assetID]
	m.mu.Unlock()

	if _, err := os.Stat(destPath); err == nil {
		return mirror.FetchExists, nil
	}
	if !ok {
		return mirror.FetchRemoved, nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return "", err
	}
	return mirror.FetchCopied, nil
}
