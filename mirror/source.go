package mirror

import (
	"context"
	"iter"
	"time"
)

// SourceResource describes one binary resource of an observed asset as
// reported by the external source.
type SourceResource struct {
	Kind         FileKind
	OriginalName string
	Size         int64
	Width        int
	Height       int
}

// SourceAsset is one observed asset with its nested resource descriptors.
type SourceAsset struct {
	Asset     Asset
	Resources []SourceResource
}

// FetchResult is the outcome of fetching a resource's bytes.
type FetchResult string

const (
	// FetchCopied: the bytes were written to the destination.
	FetchCopied FetchResult = "copied"
	// FetchExists: the destination already existed and was left untouched.
	FetchExists FetchResult = "exists"
	// FetchRemoved: the upstream resource can no longer be located. Treated
	// as success; the stale reference is reconciled away on the next
	// soft-delete cycle.
	FetchRemoved FetchResult = "removed"
)

// Source enumerates the external media library. The asset sequence is lazy,
// forward-only and non-restartable; a reconciliation pass must fully drain it
// before computing its absent set.
type Source interface {
	// Assets yields the observed assets. An error here means the source is
	// unavailable and the run must abort.
	Assets(ctx context.Context) (iter.Seq[SourceAsset], error)

	// Folders returns the full folder tree snapshot.
	Folders(ctx context.Context) ([]Folder, error)

	// Albums returns the full album snapshot.
	Albums(ctx context.Context) ([]Album, error)

	// FetchResource writes the bytes of one resource to destPath, creating
	// parent directories as needed. An existing destination is left alone.
	FetchResource(ctx context.Context, assetID string, kind FileKind, name string, destPath string) (FetchResult, error)
}

// CopyTask pairs an uncopied file with a live owning asset able to serve its
// bytes.
type CopyTask struct {
	File    File
	AssetID string
}

// Geocoder resolves a geolocation to country and city names. Implementations
// are external collaborators; empty strings mean unresolved.
type Geocoder interface {
	ReverseLookup(ctx context.Context, p GeoPoint) (country, city string, err error)
}

// Clock abstracts time retrieval so tombstone expiry is deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
