package mirror

import (
	"fmt"
	"path"
	"strings"

	"github.com/cespare/xxhash"
)

// DeriveFileKey computes the content-derived identity of a file from the
// owning asset's creation time, the resource byte size, the resource kind and
// the original filename. Changing this derivation breaks idempotence of
// reconciliation across runs.
func DeriveFileKey(a Asset, res SourceResource) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%d|%d|%s|%s", a.CreatedAt.Unix(), res.Size, res.Kind, res.OriginalName)
	return fmt.Sprintf("%016x", h.Sum64())
}

// BuildFile derives the mirror File entity for one observed resource of an
// asset. Country and city IDs are resolved by the caller once geocoding is
// done. countrySegment may be empty when the location is unknown.
func BuildFile(a Asset, res SourceResource, countrySegment string) File {
	created := a.CreatedAt.UTC()
	dir := path.Join(
		fmt.Sprintf("%04d", created.Year()),
		created.Format("2006-01"),
	)
	if countrySegment != "" {
		dir = path.Join(dir, normalizeSegment(countrySegment))
	}

	return File{
		Key:          DeriveFileKey(a, res),
		Kind:         res.Kind,
		OriginalName: res.OriginalName,
		Location:     a.Location,
		Size:         res.Size,
		Width:        res.Width,
		Height:       res.Height,
		ImportedAt:   a.CreatedAt,
		TargetDir:    dir,
		FileName:     created.Format("2006-01-02_150405") + "_" + normalizeSegment(res.OriginalName),
	}
}

// normalizeSegment makes a name safe as a single path element.
func normalizeSegment(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	return replacer.Replace(name)
}
