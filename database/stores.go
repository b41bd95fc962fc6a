package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photomirror/photomirror/mirror"
)

// write serializes one mutation under the database lock. Dry runs log the
// intent and commit nothing.
func (d *Database) write(ctx context.Context, what string, fn func(tx *gorm.DB) error) error {
	d.Lock.Lock()
	defer d.Lock.Unlock()
	if d.DryRun {
		d.Logger.Debug().Str("op", what).Msg("dry run, skipping write")
		return nil
	}
	return d.Cli.WithContext(ctx).Transaction(fn)
}

// read runs a query while holding the database lock.
func (d *Database) read(ctx context.Context, fn func(tx *gorm.DB) error) error {
	d.Lock.Lock()
	defer d.Lock.Unlock()
	return fn(d.Cli.WithContext(ctx))
}

// notFoundOK strips gorm's not-found error, reporting presence instead.
func notFoundOK(err error) (found bool, _ error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AssetStore implements mirror.Store[mirror.Asset].
type AssetStore struct {
	db *Database
}

func (s *AssetStore) Get(ctx context.Context, key string) (mirror.Persisted[mirror.Asset], bool, error) {
	var rec Asset
	found, err := notFoundOK(s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", key).First(&rec).Error
	}))
	if err != nil || !found {
		return mirror.Persisted[mirror.Asset]{}, false, err
	}
	return mirror.Persisted[mirror.Asset]{Entity: rec.entity(), DeletedAt: rec.DeletedAt}, true, nil
}

func (s *AssetStore) Upsert(ctx context.Context, e mirror.Asset) error {
	rec := assetRecord(e)
	return s.db.write(ctx, "upsert asset", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	})
}

func (s *AssetStore) MarkDeleted(ctx context.Context, key string, at time.Time) error {
	return s.db.write(ctx, "tombstone asset", func(tx *gorm.DB) error {
		return tx.Model(&Asset{}).Where("id = ?", key).
			Updates(map[string]any{"deleted": true, "deleted_at": at}).Error
	})
}

func (s *AssetStore) LiveKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Asset{}).Where("deleted = ?", false).
			Order("id").Pluck("id", &keys).Error
	})
	return keys, err
}

func (s *AssetStore) PurgeExpired(ctx context.Context, cutoff time.Time) ([]mirror.Asset, error) {
	var recs []Asset
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Find(&recs).Error
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	err = s.db.write(ctx, "purge assets", func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Delete(&Asset{}).Error
	})
	if err != nil {
		return nil, err
	}
	purged := make([]mirror.Asset, 0, len(recs))
	for _, r := range recs {
		purged = append(purged, r.entity())
	}
	return purged, nil
}

// FileStore implements mirror.Store[mirror.File]. Upserts preserve the
// was_copied column: the copy pass owns that flag, not the reconciler.
type FileStore struct {
	db *Database
}

func (s *FileStore) Get(ctx context.Context, key string) (mirror.Persisted[mirror.File], bool, error) {
	var rec File
	found, err := notFoundOK(s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("key = ?", key).First(&rec).Error
	}))
	if err != nil || !found {
		return mirror.Persisted[mirror.File]{}, false, err
	}
	return mirror.Persisted[mirror.File]{Entity: rec.entity(), DeletedAt: rec.DeletedAt}, true, nil
}

func (s *FileStore) Upsert(ctx context.Context, e mirror.File) error {
	rec := fileRecord(e)
	return s.db.write(ctx, "upsert file", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "original_name", "latitude", "longitude",
				"country_id", "city_id", "size", "width", "height",
				"imported_at", "target_dir", "file_name",
				"deleted", "deleted_at",
			}),
		}).Create(&rec).Error
	})
}

func (s *FileStore) MarkDeleted(ctx context.Context, key string, at time.Time) error {
	return s.db.write(ctx, "tombstone file", func(tx *gorm.DB) error {
		return tx.Model(&File{}).Where("key = ?", key).
			Updates(map[string]any{"deleted": true, "deleted_at": at}).Error
	})
}

func (s *FileStore) LiveKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Model(&File{}).Where("deleted = ?", false).
			Order("key").Pluck("key", &keys).Error
	})
	return keys, err
}

func (s *FileStore) PurgeExpired(ctx context.Context, cutoff time.Time) ([]mirror.File, error) {
	var recs []File
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Find(&recs).Error
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	err = s.db.write(ctx, "purge files", func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Delete(&File{}).Error
	})
	if err != nil {
		return nil, err
	}
	purged := make([]mirror.File, 0, len(recs))
	for _, r := range recs {
		purged = append(purged, r.entity())
	}
	return purged, nil
}

// MarkCopied records a successful physical copy.
func (s *FileStore) MarkCopied(ctx context.Context, key string) error {
	return s.db.write(ctx, "mark file copied", func(tx *gorm.DB) error {
		return tx.Model(&File{}).Where("key = ?", key).Update("was_copied", true).Error
	})
}

// LinkStore implements mirror.Store[mirror.AssetFile]. The mirror-side key is
// the composite "assetID/fileKey".
type LinkStore struct {
	db *Database
}

func splitLinkKey(key string) (assetID, fileKey string, err error) {
	assetID, fileKey, ok := strings.Cut(key, "/")
	if !ok {
		return "", "", fmt.Errorf("malformed link key %q", key)
	}
	return assetID, fileKey, nil
}

func (s *LinkStore) Get(ctx context.Context, key string) (mirror.Persisted[mirror.AssetFile], bool, error) {
	assetID, fileKey, err := splitLinkKey(key)
	if err != nil {
		return mirror.Persisted[mirror.AssetFile]{}, false, err
	}
	var rec AssetFile
	found, err := notFoundOK(s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("asset_id = ? AND file_key = ?", assetID, fileKey).First(&rec).Error
	}))
	if err != nil || !found {
		return mirror.Persisted[mirror.AssetFile]{}, false, err
	}
	return mirror.Persisted[mirror.AssetFile]{
		Entity:    mirror.AssetFile{AssetID: rec.AssetID, FileKey: rec.FileKey},
		DeletedAt: rec.DeletedAt,
	}, true, nil
}

func (s *LinkStore) Upsert(ctx context.Context, e mirror.AssetFile) error {
	rec := AssetFile{AssetID: e.AssetID, FileKey: e.FileKey}
	return s.db.write(ctx, "upsert link", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	})
}

func (s *LinkStore) MarkDeleted(ctx context.Context, key string, at time.Time) error {
	assetID, fileKey, err := splitLinkKey(key)
	if err != nil {
		return err
	}
	return s.db.write(ctx, "tombstone link", func(tx *gorm.DB) error {
		return tx.Model(&AssetFile{}).Where("asset_id = ? AND file_key = ?", assetID, fileKey).
			Updates(map[string]any{"deleted": true, "deleted_at": at}).Error
	})
}

func (s *LinkStore) LiveKeys(ctx context.Context) ([]string, error) {
	var recs []AssetFile
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("deleted = ?", false).Order("asset_id, file_key").Find(&recs).Error
	})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, mirror.AssetFile{AssetID: r.AssetID, FileKey: r.FileKey}.Key())
	}
	return keys, nil
}

func (s *LinkStore) PurgeExpired(ctx context.Context, cutoff time.Time) ([]mirror.AssetFile, error) {
	var recs []AssetFile
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Find(&recs).Error
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	err = s.db.write(ctx, "purge links", func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Delete(&AssetFile{}).Error
	})
	if err != nil {
		return nil, err
	}
	purged := make([]mirror.AssetFile, 0, len(recs))
	for _, r := range recs {
		purged = append(purged, mirror.AssetFile{AssetID: r.AssetID, FileKey: r.FileKey})
	}
	return purged, nil
}

// FolderStore implements mirror.Store[mirror.Folder].
type FolderStore struct {
	db *Database
}

func (s *FolderStore) Get(ctx context.Context, key string) (mirror.Persisted[mirror.Folder], bool, error) {
	var rec Folder
	found, err := notFoundOK(s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", key).First(&rec).Error
	}))
	if err != nil || !found {
		return mirror.Persisted[mirror.Folder]{}, false, err
	}
	return mirror.Persisted[mirror.Folder]{Entity: rec.entity(), DeletedAt: rec.DeletedAt}, true, nil
}

func (s *FolderStore) Upsert(ctx context.Context, e mirror.Folder) error {
	rec := folderRecord(e)
	return s.db.write(ctx, "upsert folder", func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	})
}

func (s *FolderStore) MarkDeleted(ctx context.Context, key string, at time.Time) error {
	return s.db.write(ctx, "tombstone folder", func(tx *gorm.DB) error {
		return tx.Model(&Folder{}).Where("id = ?", key).
			Updates(map[string]any{"deleted": true, "deleted_at": at}).Error
	})
}

func (s *FolderStore) LiveKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Folder{}).Where("deleted = ?", false).
			Order("id").Pluck("id", &keys).Error
	})
	return keys, err
}

func (s *FolderStore) PurgeExpired(ctx context.Context, cutoff time.Time) ([]mirror.Folder, error) {
	var recs []Folder
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Find(&recs).Error
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	err = s.db.write(ctx, "purge folders", func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Delete(&Folder{}).Error
	})
	if err != nil {
		return nil, err
	}
	purged := make([]mirror.Folder, 0, len(recs))
	for _, r := range recs {
		purged = append(purged, r.entity())
	}
	return purged, nil
}

// LiveFolders returns every non-tombstoned folder.
func (s *FolderStore) LiveFolders(ctx context.Context) ([]mirror.Folder, error) {
	var recs []Folder
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("deleted = ?", false).Order("id").Find(&recs).Error
	})
	if err != nil {
		return nil, err
	}
	folders := make([]mirror.Folder, 0, len(recs))
	for _, r := range recs {
		folders = append(folders, r.entity())
	}
	return folders, nil
}

// AlbumStore implements mirror.Store[mirror.Album]. Membership rows are
// replaced wholesale on upsert.
type AlbumStore struct {
	db *Database
}

func (s *AlbumStore) Get(ctx context.Context, key string) (mirror.Persisted[mirror.Album], bool, error) {
	var rec Album
	var assetIDs []string
	found, err := notFoundOK(s.db.read(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", key).First(&rec).Error; err != nil {
			return err
		}
		return tx.Model(&AlbumAsset{}).Where("album_id = ?", key).
			Order("asset_id").Pluck("asset_id", &assetIDs).Error
	}))
	if err != nil || !found {
		return mirror.Persisted[mirror.Album]{}, false, err
	}
	return mirror.Persisted[mirror.Album]{Entity: rec.entity(assetIDs), DeletedAt: rec.DeletedAt}, true, nil
}

func (s *AlbumStore) Upsert(ctx context.Context, e mirror.Album) error {
	rec := albumRecord(e)
	return s.db.write(ctx, "upsert album", func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return err
		}
		if err := tx.Where("album_id = ?", e.ID).Delete(&AlbumAsset{}).Error; err != nil {
			return err
		}
		for _, assetID := range e.AssetIDs {
			if err := tx.Create(&AlbumAsset{AlbumID: e.ID, AssetID: assetID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *AlbumStore) MarkDeleted(ctx context.Context, key string, at time.Time) error {
	return s.db.write(ctx, "tombstone album", func(tx *gorm.DB) error {
		return tx.Model(&Album{}).Where("id = ?", key).
			Updates(map[string]any{"deleted": true, "deleted_at": at}).Error
	})
}

func (s *AlbumStore) LiveKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Album{}).Where("deleted = ?", false).
			Order("id").Pluck("id", &keys).Error
	})
	return keys, err
}

func (s *AlbumStore) PurgeExpired(ctx context.Context, cutoff time.Time) ([]mirror.Album, error) {
	var recs []Album
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Find(&recs).Error
	})
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	err = s.db.write(ctx, "purge albums", func(tx *gorm.DB) error {
		for _, r := range recs {
			if err := tx.Where("album_id = ?", r.ID).Delete(&AlbumAsset{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("deleted = ? AND deleted_at <= ?", true, cutoff).Delete(&Album{}).Error
	})
	if err != nil {
		return nil, err
	}
	purged := make([]mirror.Album, 0, len(recs))
	for _, r := range recs {
		purged = append(purged, r.entity(nil))
	}
	return purged, nil
}

// LiveAlbums returns every non-tombstoned album with its membership.
func (s *AlbumStore) LiveAlbums(ctx context.Context) ([]mirror.Album, error) {
	var recs []Album
	memberships := make(map[string][]string)
	err := s.db.read(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("deleted = ?", false).Order("id").Find(&recs).Error; err != nil {
			return err
		}
		var members []AlbumAsset
		if err := tx.Order("album_id, asset_id").Find(&members).Error; err != nil {
			return err
		}
		for _, m := range members {
			memberships[m.AlbumID] = append(memberships[m.AlbumID], m.AssetID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	albums := make([]mirror.Album, 0, len(recs))
	for _, r := range recs {
		albums = append(albums, r.entity(memberships[r.ID]))
	}
	return albums, nil
}
