package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/photomirror/photomirror/mirror"
)

// UncopiedFiles returns every live file still awaiting its physical copy,
// each paired with a live owning asset through the link table.
func (s *FileStore) UncopiedFiles(ctx context.Context) ([]mirror.CopyTask, error) {
	type row struct {
		File
		AssetID string
	}
	var rows []row
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Table("file").
			Select("file.*, asset_file.asset_id").
			Joins("JOIN asset_file ON asset_file.file_key = file.key AND asset_file.deleted = ?", false).
			Joins("JOIN asset ON asset.id = asset_file.asset_id AND asset.deleted = ?", false).
			Where("file.deleted = ? AND file.was_copied = ?", false, false).
			Order("file.key").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	// A file shared by several assets yields one task; any live owner can
	// serve the bytes.
	tasks := make([]mirror.CopyTask, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.Key]; dup {
			continue
		}
		seen[r.Key] = struct{}{}
		tasks = append(tasks, mirror.CopyTask{File: r.File.entity(), AssetID: r.AssetID})
	}
	return tasks, nil
}

// PrimaryFile returns the preferred live copied file of an asset, used as the
// symlink target for album members. Originals win over edits.
func (s *FileStore) PrimaryFile(ctx context.Context, assetID string) (mirror.File, bool, error) {
	var recs []File
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Table("file").
			Select("file.*").
			Joins("JOIN asset_file ON asset_file.file_key = file.key AND asset_file.deleted = ?", false).
			Where("asset_file.asset_id = ? AND file.deleted = ? AND file.was_copied = ?", assetID, false, true).
			Order("file.key").
			Find(&recs).Error
	})
	if err != nil || len(recs) == 0 {
		return mirror.File{}, false, err
	}

	best := recs[0]
	for _, r := range recs[1:] {
		if kindRank(r.Kind) < kindRank(best.Kind) {
			best = r
		}
	}
	return best.entity(), true, nil
}

func kindRank(kind string) int {
	switch mirror.FileKind(kind) {
	case mirror.FileImage, mirror.FileVideoOriginal, mirror.FileAudio:
		return 0
	case mirror.FileVideo:
		return 1
	case mirror.FileImageEdited:
		return 2
	default:
		return 3
	}
}

// Totals reports mirror-wide live counts for the run summary.
func (d *Database) Totals(ctx context.Context) (mirror.Totals, error) {
	var t mirror.Totals
	err := d.read(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&Asset{}).Where("deleted = ?", false).Count(&t.Assets).Error; err != nil {
			return err
		}
		if err := tx.Model(&File{}).Where("deleted = ?", false).Count(&t.Files).Error; err != nil {
			return err
		}
		if err := tx.Model(&Album{}).Where("deleted = ?", false).Count(&t.Albums).Error; err != nil {
			return err
		}
		if err := tx.Model(&Folder{}).Where("deleted = ?", false).Count(&t.Folders).Error; err != nil {
			return err
		}
		var size *int64
		if err := tx.Model(&File{}).Where("deleted = ?", false).
			Select("SUM(size)").Scan(&size).Error; err != nil {
			return err
		}
		if size != nil {
			t.FileBytes = *size
		}
		return nil
	})
	return t, err
}
