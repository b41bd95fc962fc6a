// Package source provides implementations of the external media library
// contract: a production scanner over a library directory and an in-memory
// fake for deterministic tests.
package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/photomirror/photomirror/mirror"
)

var mediaTypes = map[string]mirror.MediaType{
	".jpg":  mirror.MediaImage,
	".jpeg": mirror.MediaImage,
	".png":  mirror.MediaImage,
	".gif":  mirror.MediaImage,
	".heic": mirror.MediaImage,
	".tiff": mirror.MediaImage,
	".mp4":  mirror.MediaVideo,
	".mov":  mirror.MediaVideo,
	".avi":  mirror.MediaVideo,
	".mp3":  mirror.MediaAudio,
	".m4a":  mirror.MediaAudio,
	".wav":  mirror.MediaAudio,
}

func fileKindFor(media mirror.MediaType) mirror.FileKind {
	switch media {
	case mirror.MediaVideo:
		return mirror.FileVideoOriginal
	case mirror.MediaAudio:
		return mirror.FileAudio
	default:
		return mirror.FileImage
	}
}

// Scanner observes a media library laid out as a directory tree: nested
// directories form the folder hierarchy, directories directly containing
// media become albums, media files become assets. Asset identity is the
// path relative to the library root.
type Scanner struct {
	root   string
	logger zerolog.Logger
}

func NewScanner(root string, logger zerolog.Logger) *Scanner {
	return &Scanner{root: root, logger: logger.With().Str("library", root).Logger()}
}

// Assets lazily yields one observed asset per media file under the library
// root. The sequence is forward-only and non-restartable.
func (s *Scanner) Assets(ctx context.Context) (iter.Seq[mirror.SourceAsset], error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("%w: %v", mirror.ErrSourceUnavailable, err)
	}

	return func(yield func(mirror.SourceAsset) bool) {
		var scanned int
		s.logger.Info().Msg("start scanning library for assets")
		defer func() {
			s.logger.Info().Int("scanned", scanned).Msg("done scanning library")
		}()

		throttled := s.logger.Sample(&zerolog.BurstSampler{
			Burst:  1,
			Period: 1 * time.Second,
		})
		err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if err != nil {
				s.logger.Warn().Err(err).Str("path", p).Msg("could not scan path")
				return nil
			}
			if d.IsDir() {
				return nil
			}

			media, ok := mediaTypes[strings.ToLower(filepath.Ext(p))]
			if !ok {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				s.logger.Warn().Err(err).Str("path", p).Msg("could not stat path")
				return nil
			}
			rel, err := filepath.Rel(s.root, p)
			if err != nil {
				s.logger.Warn().Err(err).Str("path", p).Msg("could not resolve path")
				return nil
			}

			observed := mirror.SourceAsset{
				Asset: mirror.Asset{
					ID:        filepath.ToSlash(rel),
					MediaType: media,
					Library:   mirror.LibraryPersonal,
					CreatedAt: info.ModTime(),
					UpdatedAt: info.ModTime(),
				},
				Resources: []mirror.SourceResource{{
					Kind:         fileKindFor(media),
					OriginalName: d.Name(),
					Size:         info.Size(),
				}},
			}
			if !yield(observed) {
				return filepath.SkipAll
			}
			scanned++
			throttled.Info().Int("scanned", scanned).Msg("scanning assets")
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("could not scan library")
		}
	}, nil
}

// Folders snapshots the directory tree below the library root. Directory
// identity is its slash path relative to the root; top-level directories
// hang below a synthetic root folder.
func (s *Scanner) Folders(ctx context.Context) ([]mirror.Folder, error) {
	dirs, err := s.scanDirs(ctx)
	if err != nil {
		return nil, err
	}

	folders := []mirror.Folder{{ID: ".", Name: filepath.Base(s.root)}}
	for _, dir := range dirs {
		parent := path.Dir(dir)
		folders = append(folders, mirror.Folder{
			ID:       dir,
			Name:     path.Base(dir),
			ParentID: &parent,
		})
	}
	return folders, nil
}

// Albums snapshots the directories directly containing media files, each
// with that media as its membership.
func (s *Scanner) Albums(ctx context.Context) ([]mirror.Album, error) {
	dirs, err := s.scanDirs(ctx)
	if err != nil {
		return nil, err
	}
	var albums []mirror.Album
	for _, dir := range dirs {
		entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(dir)))
		if err != nil {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("could not list album directory")
			continue
		}
		var members []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := mediaTypes[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
				continue
			}
			members = append(members, path.Join(dir, e.Name()))
		}
		if len(members) == 0 {
			continue
		}
		albums = append(albums, mirror.Album{
			ID:       dir,
			Kind:     mirror.AlbumUser,
			FolderID: path.Dir(dir),
			Name:     path.Base(dir),
			AssetIDs: members,
		})
	}
	return albums, nil
}

// FetchResource copies the asset's bytes to destPath. An existing
// destination wins; a vanished upstream file reports removed, not an error.
func (s *Scanner) FetchResource(ctx context.Context, assetID string, _ mirror.FileKind, _ string, destPath string) (mirror.FetchResult, error) {
	if _, err := os.Stat(destPath); err == nil {
		return mirror.FetchExists, nil
	}

	srcPath := filepath.Join(s.root, filepath.FromSlash(assetID))
	src, err := os.Open(srcPath)
	if os.IsNotExist(err) {
		s.logger.Debug().Str("asset", assetID).Msg("upstream resource vanished")
		return mirror.FetchRemoved, nil
	}
	if err != nil {
		return "", fmt.Errorf("open resource %q: %w", assetID, err)
	}
	defer func() {
		_ = src.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create destination dir: %w", err)
	}
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(dest, src); err != nil {
		_ = dest.Close()
		_ = os.Remove(destPath)
		return "", fmt.Errorf("copy resource %q: %w", assetID, err)
	}
	if err := dest.Close(); err != nil {
		return "", err
	}
	return mirror.FetchCopied, nil
}

func (s *Scanner) scanDirs(ctx context.Context) ([]string, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("%w: %v", mirror.ErrSourceUnavailable, err)
	}

	var dirs []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil || !d.IsDir() || p == s.root {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		dirs = append(dirs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}
