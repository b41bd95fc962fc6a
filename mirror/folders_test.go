package mirror_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/photomirror/photomirror/mirror"
)

func strPtr(s string) *string { return &s }

func TestOrderFolders_ParentsFirst(t *testing.T) {
	folders := []mirror.Folder{
		{ID: "c", Name: "grandchild", ParentID: strPtr("b")},
		{ID: "a", Name: "root"},
		{ID: "b", Name: "child", ParentID: strPtr("a")},
	}

	ordered, unresolved := mirror.OrderFolders(folders)
	assert.Empty(t, unresolved)

	pos := map[string]int{}
	for i, f := range ordered {
		pos[f.ID] = i
	}
	assert.Less(t, pos["a"], pos["b"])
	assert.Less(t, pos["b"], pos["c"])
}

func TestOrderFolders_OrphansAndCycles(t *testing.T) {
	folders := []mirror.Folder{
		{ID: "root", Name: "root"},
		{ID: "orphan", Name: "orphan", ParentID: strPtr("missing")},
		{ID: "x", Name: "x", ParentID: strPtr("y")},
		{ID: "y", Name: "y", ParentID: strPtr("x")},
	}

	ordered, unresolved := mirror.OrderFolders(folders)
	assert.Len(t, ordered, 1)
	assert.Equal(t, "root", ordered[0].ID)

	ids := make([]string, 0, len(unresolved))
	for _, f := range unresolved {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"orphan", "x", "y"}, ids)
}

func TestFolderPaths(t *testing.T) {
	folders := []mirror.Folder{
		{ID: "a", Name: "Travel"},
		{ID: "b", Name: "2023", ParentID: strPtr("a")},
		{ID: "c", Name: "Portugal", ParentID: strPtr("b")},
	}

	paths := mirror.FolderPaths(folders)
	assert.Equal(t, []string{"Travel"}, paths["a"])
	assert.Equal(t, []string{"Travel", "2023", "Portugal"}, paths["c"])
}
