package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/photomirror/photomirror/mirror"
)

// AppendHistory records the aggregate result of one synchronization run in
// the append-only audit log.
func (d *Database) AppendHistory(ctx context.Context, r mirror.ExportResult) error {
	rec := ExportHistory{
		RunID:     r.RunID,
		CreatedAt: r.StartedAt,

		AssetsInserted:  r.Assets.Inserted,
		AssetsUpdated:   r.Assets.Updated,
		AssetsUnchanged: r.Assets.Unchanged,
		AssetsSkipped:   r.Assets.Skipped,
		AssetsMarked:    r.Assets.MarkedForDeletion,
		AssetsDeleted:   r.Assets.Deleted,

		FilesInserted:  r.Files.Inserted,
		FilesUpdated:   r.Files.Updated,
		FilesUnchanged: r.Files.Unchanged,
		FilesSkipped:   r.Files.Skipped,
		FilesMarked:    r.Files.MarkedForDeletion,
		FilesDeleted:   r.Files.Deleted,

		FoldersInserted:  r.Folders.Inserted,
		FoldersUpdated:   r.Folders.Updated,
		FoldersUnchanged: r.Folders.Unchanged,
		FoldersSkipped:   r.Folders.Skipped,
		FoldersMarked:    r.Folders.MarkedForDeletion,
		FoldersDeleted:   r.Folders.Deleted,

		AlbumsInserted:  r.Albums.Inserted,
		AlbumsUpdated:   r.Albums.Updated,
		AlbumsUnchanged: r.Albums.Unchanged,
		AlbumsSkipped:   r.Albums.Skipped,
		AlbumsMarked:    r.Albums.MarkedForDeletion,
		AlbumsDeleted:   r.Albums.Deleted,

		FilesCopied:  r.FilesCopied,
		FilesRemoved: r.FilesRemoved,

		TotalAssets:    r.Totals.Assets,
		TotalFiles:     r.Totals.Files,
		TotalAlbums:    r.Totals.Albums,
		TotalFolders:   r.Totals.Folders,
		TotalFileBytes: r.Totals.FileBytes,

		Seconds: r.Duration.Seconds(),
	}

	return d.write(ctx, "append history", func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
}

// RecentHistory returns the newest run records, most recent first.
func (d *Database) RecentHistory(ctx context.Context, limit int) ([]ExportHistory, error) {
	var recs []ExportHistory
	err := d.read(ctx, func(tx *gorm.DB) error {
		q := tx.Order("created_at DESC, id DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&recs).Error
	})
	return recs, err
}
