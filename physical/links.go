package physical

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/photomirror/photomirror/fileutils"
	"github.com/photomirror/photomirror/mirror"
)

// FolderLister lists the live folder tree.
type FolderLister interface {
	LiveFolders(ctx context.Context) ([]mirror.Folder, error)
}

// AlbumLister lists the live albums with their membership.
type AlbumLister interface {
	LiveAlbums(ctx context.Context) ([]mirror.Album, error)
}

// PrimaryFiles resolves an asset to its best copied file.
type PrimaryFiles interface {
	PrimaryFile(ctx context.Context, assetID string) (mirror.File, bool, error)
}

// LinkStats summarizes one symlink pass.
type LinkStats struct {
	Created int
	Missing int
	Failed  int
}

func (s LinkStats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("created", s.Created)
	if s.Missing > 0 {
		e.Int("missing_primary", s.Missing)
	}
	if s.Failed > 0 {
		e.Int("failed", s.Failed)
	}
}

// Linker regenerates the album/folder symlink tree below treeRoot. The tree
// is derived state: each pass removes it wholesale and rebuilds it from the
// live mirror, one link per album member's primary file.
type Linker struct {
	treeRoot  string
	filesRoot string
	folders   FolderLister
	albums    AlbumLister
	files     PrimaryFiles
	fs        fileutils.Filesystem
	logger    zerolog.Logger
}

func NewLinker(treeRoot, filesRoot string, folders FolderLister, albums AlbumLister, files PrimaryFiles, fs fileutils.Filesystem, logger zerolog.Logger) *Linker {
	return &Linker{
		treeRoot:  treeRoot,
		filesRoot: filesRoot,
		folders:   folders,
		albums:    albums,
		files:     files,
		fs:        fs,
		logger:    logger.With().Str("tree", treeRoot).Logger(),
	}
}

// Rebuild regenerates the whole tree. Per-album and per-member failures are
// logged and counted without aborting the pass.
func (l *Linker) Rebuild(ctx context.Context) (LinkStats, error) {
	var stats LinkStats

	folders, err := l.folders.LiveFolders(ctx)
	if err != nil {
		return stats, fmt.Errorf("list folders: %w", err)
	}
	albums, err := l.albums.LiveAlbums(ctx)
	if err != nil {
		return stats, fmt.Errorf("list albums: %w", err)
	}

	if err := l.fs.RemoveAll(l.treeRoot); err != nil {
		return stats, fmt.Errorf("clear tree: %w", err)
	}

	paths := mirror.FolderPaths(folders)
	sort.Slice(albums, func(i, j int) bool { return albums[i].ID < albums[j].ID })

	l.logger.Info().Int("albums", len(albums)).Msg("start rebuilding link tree")
	for _, album := range albums {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		segments, ok := paths[album.FolderID]
		if !ok {
			// Folder tombstoned while the album is still live. The album
			// drops out of the tree until the next reconciliation settles it.
			l.logger.Warn().Object("album", album).Msg("album folder is not live, skipping")
			stats.Failed++
			continue
		}

		dir := filepath.Join(append([]string{l.treeRoot}, segments...)...)
		dir = filepath.Join(dir, album.Name)
		if err := l.fs.MkdirAll(dir); err != nil {
			l.logger.Warn().Err(err).Object("album", album).Msg("could not create album directory")
			stats.Failed++
			continue
		}

		members := append([]string(nil), album.AssetIDs...)
		sort.Strings(members)
		for i, assetID := range members {
			file, found, err := l.files.PrimaryFile(ctx, assetID)
			if err != nil {
				l.logger.Warn().Err(err).Str("asset", assetID).Msg("could not resolve primary file")
				stats.Failed++
				continue
			}
			if !found {
				stats.Missing++
				continue
			}

			target := filepath.Join(l.filesRoot, filepath.FromSlash(file.TargetDir), file.FileName)
			linkName := filepath.Join(dir, fmt.Sprintf("%03d_%s", i+1, file.FileName))
			if err := l.fs.Symlink(target, linkName); err != nil {
				l.logger.Warn().Err(err).Str("link", linkName).Msg("could not create link")
				stats.Failed++
				continue
			}
			stats.Created++
		}
	}

	l.logger.Info().Object("stats", stats).Msg("done rebuilding link tree")
	return stats, nil
}
