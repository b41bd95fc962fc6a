package mirror

import (
	"github.com/photomirror/photomirror/diff"
)

// Per-entity diff functions enumerate fields by hand. Identity fields are
// never diffed: identity is preserved across upserts, so a key mismatch is a
// caller bug, not a field change.

func diffGeo(a, b GeoPoint) diff.Result {
	return diff.Record(
		diff.Field{Name: "lat", Result: diff.Floats(a.Lat, b.Lat)},
		diff.Field{Name: "long", Result: diff.Floats(a.Long, b.Long)},
	)
}

// DiffAssets compares the mutable fields of two assets.
func DiffAssets(a, b Asset) diff.Result {
	return diff.Record(
		diff.Field{Name: "media_type", Result: diff.Scalar(a.MediaType, b.MediaType)},
		diff.Field{Name: "library", Result: diff.Scalar(a.Library, b.Library)},
		diff.Field{Name: "created_at", Result: diff.Times(a.CreatedAt, b.CreatedAt)},
		diff.Field{Name: "updated_at", Result: diff.Times(a.UpdatedAt, b.UpdatedAt)},
		diff.Field{Name: "favorite", Result: diff.Scalar(a.Favorite, b.Favorite)},
		diff.Field{Name: "location", Result: diff.Optional(a.Location, b.Location, diffGeo)},
		diff.Field{Name: "score", Result: diff.Floats(a.Score, b.Score)},
	)
}

// DiffFiles compares the mutable fields of two files. WasCopied is local
// bookkeeping and deliberately excluded: the copy pass flips it without the
// upstream entity changing.
func DiffFiles(a, b File) diff.Result {
	return diff.Record(
		diff.Field{Name: "kind", Result: diff.Scalar(a.Kind, b.Kind)},
		diff.Field{Name: "original_name", Result: diff.Scalar(a.OriginalName, b.OriginalName)},
		diff.Field{Name: "location", Result: diff.Optional(a.Location, b.Location, diffGeo)},
		diff.Field{Name: "country_id", Result: diff.Optional(a.CountryID, b.CountryID, diff.Scalar)},
		diff.Field{Name: "city_id", Result: diff.Optional(a.CityID, b.CityID, diff.Scalar)},
		diff.Field{Name: "size", Result: diff.Scalar(a.Size, b.Size)},
		diff.Field{Name: "width", Result: diff.Scalar(a.Width, b.Width)},
		diff.Field{Name: "height", Result: diff.Scalar(a.Height, b.Height)},
		diff.Field{Name: "imported_at", Result: diff.Times(a.ImportedAt, b.ImportedAt)},
		diff.Field{Name: "target_dir", Result: diff.Scalar(a.TargetDir, b.TargetDir)},
		diff.Field{Name: "file_name", Result: diff.Scalar(a.FileName, b.FileName)},
	)
}

// DiffLinks compares two asset-file links. Links have no mutable fields
// beyond their identity, so two links with equal keys are always the same.
func DiffLinks(a, b AssetFile) diff.Result {
	return diff.Record()
}

// DiffFolders compares the mutable fields of two folders.
func DiffFolders(a, b Folder) diff.Result {
	return diff.Record(
		diff.Field{Name: "name", Result: diff.Scalar(a.Name, b.Name)},
		diff.Field{Name: "parent", Result: diff.Optional(a.ParentID, b.ParentID, diff.Scalar)},
	)
}

// DiffAlbums compares the mutable fields of two albums. Membership is an
// unordered set.
func DiffAlbums(a, b Album) diff.Result {
	return diff.Record(
		diff.Field{Name: "kind", Result: diff.Scalar(a.Kind, b.Kind)},
		diff.Field{Name: "folder", Result: diff.Scalar(a.FolderID, b.FolderID)},
		diff.Field{Name: "name", Result: diff.Scalar(a.Name, b.Name)},
		diff.Field{Name: "assets", Result: diff.Set(a.AssetIDs, b.AssetIDs)},
	)
}
