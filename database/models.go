package database

import (
	"time"

	"github.com/photomirror/photomirror/mirror"
)

type Asset struct {
	ID        string `gorm:"primaryKey"`
	MediaType string
	Library   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Favorite  bool
	Latitude  *float64
	Longitude *float64
	Score     float64
	Deleted   bool `gorm:"index"`
	DeletedAt *time.Time
}

type File struct {
	Key          string `gorm:"primaryKey"`
	Kind         string
	OriginalName string
	Latitude     *float64
	Longitude    *float64
	CountryID    *int64
	CityID       *int64
	Size         int64
	Width        int
	Height       int
	ImportedAt   time.Time
	TargetDir    string
	FileName     string
	WasCopied    bool
	Deleted      bool `gorm:"index"`
	DeletedAt    *time.Time
}

type AssetFile struct {
	AssetID   string `gorm:"primaryKey"`
	FileKey   string `gorm:"primaryKey"`
	Deleted   bool   `gorm:"index"`
	DeletedAt *time.Time
}

type Folder struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	ParentID  *string
	Deleted   bool `gorm:"index"`
	DeletedAt *time.Time
}

type Album struct {
	ID        string `gorm:"primaryKey"`
	Kind      string
	FolderID  string
	Name      string
	Deleted   bool `gorm:"index"`
	DeletedAt *time.Time
}

// AlbumAsset holds album membership, replaced wholesale on album upsert.
type AlbumAsset struct {
	AlbumID string `gorm:"primaryKey"`
	AssetID string `gorm:"primaryKey"`
}

type Country struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex"`
}

type City struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex"`
}

// ExportHistory is the append-only audit log of synchronization runs.
type ExportHistory struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"index"`
	CreatedAt time.Time

	AssetsInserted  int
	AssetsUpdated   int
	AssetsUnchanged int
	AssetsSkipped   int
	AssetsMarked    int
	AssetsDeleted   int

	FilesInserted  int
	FilesUpdated   int
	FilesUnchanged int
	FilesSkipped   int
	FilesMarked    int
	FilesDeleted   int

	FoldersInserted  int
	FoldersUpdated   int
	FoldersUnchanged int
	FoldersSkipped   int
	FoldersMarked    int
	FoldersDeleted   int

	AlbumsInserted  int
	AlbumsUpdated   int
	AlbumsUnchanged int
	AlbumsSkipped   int
	AlbumsMarked    int
	AlbumsDeleted   int

	FilesCopied  int
	FilesRemoved int

	TotalAssets    int64
	TotalFiles     int64
	TotalAlbums    int64
	TotalFolders   int64
	TotalFileBytes int64

	Seconds float64
}

// Models lists every table for migration.
func Models() []any {
	return []any{
		&Asset{}, &File{}, &AssetFile{}, &Folder{}, &Album{}, &AlbumAsset{},
		&Country{}, &City{}, &ExportHistory{},
	}
}

func geoColumns(p *mirror.GeoPoint) (lat, long *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Lat, &p.Long
}

func geoPoint(lat, long *float64) *mirror.GeoPoint {
	if lat == nil || long == nil {
		return nil
	}
	return &mirror.GeoPoint{Lat: *lat, Long: *long}
}

func assetRecord(e mirror.Asset) Asset {
	lat, long := geoColumns(e.Location)
	return Asset{
		ID:        e.ID,
		MediaType: string(e.MediaType),
		Library:   string(e.Library),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		Favorite:  e.Favorite,
		Latitude:  lat,
		Longitude: long,
		Score:     e.Score,
	}
}

func (r Asset) entity() mirror.Asset {
	return mirror.Asset{
		ID:        r.ID,
		MediaType: mirror.MediaType(r.MediaType),
		Library:   mirror.Library(r.Library),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Favorite:  r.Favorite,
		Location:  geoPoint(r.Latitude, r.Longitude),
		Score:     r.Score,
	}
}

func fileRecord(e mirror.File) File {
	lat, long := geoColumns(e.Location)
	return File{
		Key:          e.Key,
		Kind:         string(e.Kind),
		OriginalName: e.OriginalName,
		Latitude:     lat,
		Longitude:    long,
		CountryID:    e.CountryID,
		CityID:       e.CityID,
		Size:         e.Size,
		Width:        e.Width,
		Height:       e.Height,
		ImportedAt:   e.ImportedAt,
		TargetDir:    e.TargetDir,
		FileName:     e.FileName,
		WasCopied:    e.WasCopied,
	}
}

func (r File) entity() mirror.File {
	return mirror.File{
		Key:          r.Key,
		Kind:         mirror.FileKind(r.Kind),
		OriginalName: r.OriginalName,
		Location:     geoPoint(r.Latitude, r.Longitude),
		CountryID:    r.CountryID,
		CityID:       r.CityID,
		Size:         r.Size,
		Width:        r.Width,
		Height:       r.Height,
		ImportedAt:   r.ImportedAt,
		TargetDir:    r.TargetDir,
		FileName:     r.FileName,
		WasCopied:    r.WasCopied,
	}
}

func folderRecord(e mirror.Folder) Folder {
	return Folder{ID: e.ID, Name: e.Name, ParentID: e.ParentID}
}

func (r Folder) entity() mirror.Folder {
	return mirror.Folder{ID: r.ID, Name: r.Name, ParentID: r.ParentID}
}

func albumRecord(e mirror.Album) Album {
	return Album{ID: e.ID, Kind: string(e.Kind), FolderID: e.FolderID, Name: e.Name}
}

func (r Album) entity(assetIDs []string) mirror.Album {
	return mirror.Album{
		ID:       r.ID,
		Kind:     mirror.AlbumKind(r.Kind),
		FolderID: r.FolderID,
		Name:     r.Name,
		AssetIDs: assetIDs,
	}
}
