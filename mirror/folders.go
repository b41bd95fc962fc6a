package mirror

import "sort"

// OrderFolders arranges observed folders so every parent precedes its
// children, walking the tree iteratively over an arena keyed by identity.
// Folders whose parent is missing from the observed set, or that sit on a
// cycle, cannot be ordered and are returned separately; upserting them would
// violate the parent-exists invariant.
func OrderFolders(folders []Folder) (ordered, unresolved []Folder) {
	byID := make(map[string]Folder, len(folders))
	children := make(map[string][]string)
	var roots []string
	for _, f := range folders {
		byID[f.ID] = f
		if f.ParentID == nil {
			roots = append(roots, f.ID)
		} else {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}

	sort.Strings(roots)
	for _, ids := range children {
		sort.Strings(ids)
	}

	visited := make(map[string]struct{}, len(folders))
	queue := roots
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		ordered = append(ordered, byID[id])
		queue = append(queue, children[id]...)
	}

	for _, f := range folders {
		if _, ok := visited[f.ID]; !ok {
			unresolved = append(unresolved, f)
		}
	}
	sort.Slice(unresolved, func(i, j int) bool { return unresolved[i].ID < unresolved[j].ID })
	return ordered, unresolved
}

// FolderPaths resolves each live folder to its path segments from the root,
// using parent back-references instead of recursion.
func FolderPaths(folders []Folder) map[string][]string {
	byID := make(map[string]Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	paths := make(map[string][]string, len(folders))
	for _, f := range folders {
		var segments []string
		cur := f
		for steps := 0; steps <= len(folders); steps++ {
			segments = append([]string{cur.Name}, segments...)
			if cur.ParentID == nil {
				paths[f.ID] = segments
				break
			}
			parent, ok := byID[*cur.ParentID]
			if !ok {
				// Dangling parent; anchor at the nearest known ancestor.
				paths[f.ID] = segments
				break
			}
			cur = parent
		}
	}
	return paths
}
