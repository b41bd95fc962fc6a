// Package mirror holds the persisted-mirror data model and the generic
// reconciliation engine that keeps it synchronized with an external media
// library.
package mirror

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrUnsupportedMedia marks an observed asset whose media kind cannot be
	// mirrored. Such assets are skipped, not failed.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrUnknownFolder marks an album referencing a folder that is not live
	// in the mirror. The album is never attached to a nonexistent folder.
	ErrUnknownFolder = errors.New("unknown folder")

	// ErrSourceUnavailable aborts a run before any of its entities are
	// mutated.
	ErrSourceUnavailable = errors.New("source library unavailable")
)

// MediaType is the broad media kind of an asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Library distinguishes personal from shared source libraries.
type Library string

const (
	LibraryPersonal Library = "personal"
	LibraryShared   Library = "shared"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Lat  float64
	Long float64
}

func (g GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", g.Lat, g.Long)
}

// Asset is one media item of the external library. Identity is the stable
// external ID. Immutable value record; mutation is replacement.
type Asset struct {
	ID        string
	MediaType MediaType
	Library   Library
	CreatedAt time.Time
	UpdatedAt time.Time
	Favorite  bool
	Location  *GeoPoint
	Score     float64
}

func (a Asset) Key() string { return a.ID }

func (a Asset) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", a.ID)
	e.Str("media_type", string(a.MediaType))
	e.Time("created_at", a.CreatedAt)
	if a.Location != nil {
		e.Str("location", a.Location.String())
	}
}

// FileKind is the resource kind of a physical file belonging to an asset.
type FileKind string

const (
	FileImage         FileKind = "image"
	FileImageEdited   FileKind = "image_edited"
	FileVideo         FileKind = "video"
	FileVideoOriginal FileKind = "video_original"
	FileAudio         FileKind = "audio"
)

// File is a physical resource belonging to one or more assets. Identity is a
// content-derived key, not the external resource ID: upstream reissues
// resource IDs across library re-imports, and only a derived key keeps
// reconciliation idempotent across that churn.
type File struct {
	Key          string
	Kind         FileKind
	OriginalName string
	Location     *GeoPoint
	CountryID    *int64
	CityID       *int64
	Size         int64
	Width        int
	Height       int
	ImportedAt   time.Time
	// TargetDir and FileName are the computed copy destination, relative to
	// the mirror root.
	TargetDir string
	FileName  string
	// WasCopied records whether the physical copy happened. Local state, not
	// part of the structural diff, and preserved across upserts.
	WasCopied bool
}

func (f File) MarshalZerologObject(e *zerolog.Event) {
	e.Str("key", f.Key)
	e.Str("kind", string(f.Kind))
	e.Str("name", f.OriginalName)
	e.Int64("size", f.Size)
	e.Bool("copied", f.WasCopied)
}

// AssetFile links an asset to one of its files. Many-to-many; carries its own
// tombstone so an asset can lose and regain resources independent of the
// file's own lifecycle.
type AssetFile struct {
	AssetID string
	FileKey string
}

func (l AssetFile) Key() string { return l.AssetID + "/" + l.FileKey }

func (l AssetFile) MarshalZerologObject(e *zerolog.Event) {
	e.Str("asset", l.AssetID)
	e.Str("file", l.FileKey)
}

// Folder is a node of the album tree. The root has no parent; every other
// folder's parent must be live before the folder itself is upserted.
type Folder struct {
	ID       string
	Name     string
	ParentID *string
}

func (f Folder) Key() string { return f.ID }

func (f Folder) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", f.ID)
	e.Str("name", f.Name)
	if f.ParentID != nil {
		e.Str("parent", *f.ParentID)
	}
}

// AlbumKind distinguishes user-created from shared albums.
type AlbumKind string

const (
	AlbumUser   AlbumKind = "user"
	AlbumShared AlbumKind = "shared"
)

// Album groups assets below a folder. AssetIDs is an unordered unique set.
type Album struct {
	ID       string
	Kind     AlbumKind
	FolderID string
	Name     string
	AssetIDs []string
}

func (a Album) Key() string { return a.ID }

func (a Album) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", a.ID)
	e.Str("name", a.Name)
	e.Str("folder", a.FolderID)
	e.Int("assets", len(a.AssetIDs))
}

// CheckAsset reports whether an observed asset can be mirrored.
func CheckAsset(a Asset) error {
	switch a.MediaType {
	case MediaImage, MediaVideo, MediaAudio:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMedia, a.MediaType)
	}
}
