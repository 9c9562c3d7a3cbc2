package model

// Snapshot holds every tag and bookmark of a library. It is the on-disk
// shape of JSON storage and backups.
type Snapshot struct {
	Tags      []Tag      `json:"tags"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// NewSnapshot creates an empty Snapshot with initialized slices.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Tags:      []Tag{},
		Bookmarks: []Bookmark{},
	}
}

// GetTagByLabel finds a tag by exact label, returns nil if not found.
func (s *Snapshot) GetTagByLabel(label string) *Tag {
	for i := range s.Tags {
		if s.Tags[i].Label == label {
			return &s.Tags[i]
		}
	}
	return nil
}

// GetBookmarkByID finds a bookmark by ID, returns nil if not found.
func (s *Snapshot) GetBookmarkByID(id string) *Bookmark {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			return &s.Bookmarks[i]
		}
	}
	return nil
}

// HasBookmarkURL reports whether a bookmark with the page URL exists.
func (s *Snapshot) HasBookmarkURL(url string) bool {
	for _, b := range s.Bookmarks {
		if b.PageURL == url {
			return true
		}
	}
	return false
}

// ImportResult lists what ImportMerge appended to the snapshot.
type ImportResult struct {
	Tags      []Tag
	Bookmarks []Bookmark
	Skipped   int
}

// ImportMerge merges imported tags and bookmarks into the snapshot.
// Tags are reused by label and imported ids are remapped onto the existing
// ones; bookmarks whose page URL already exists are skipped.
func (s *Snapshot) ImportMerge(tags []Tag, bookmarks []Bookmark) ImportResult {
	var result ImportResult
	idMap := make(map[string]string, len(tags))

	for _, t := range tags {
		if existing := s.GetTagByLabel(t.Label); existing != nil {
			idMap[t.ID] = existing.ID
			continue
		}
		idMap[t.ID] = t.ID
		s.Tags = append(s.Tags, t.Clone())
		result.Tags = append(result.Tags, t.Clone())
	}

	// Parents may reference tags declared later in the import, so remap after
	// every label has been resolved.
	for i := range result.Tags {
		result.Tags[i].ParentIDs = remap(result.Tags[i].ParentIDs, idMap)
		s.GetTagByID(result.Tags[i].ID).ParentIDs = result.Tags[i].ParentIDs
	}

	for _, b := range bookmarks {
		if s.HasBookmarkURL(b.PageURL) {
			result.Skipped++
			continue
		}
		nb := b.Clone()
		nb.TagIDs = remap(nb.TagIDs, idMap)
		s.Bookmarks = append(s.Bookmarks, nb)
		result.Bookmarks = append(result.Bookmarks, nb.Clone())
	}

	return result
}

// GetTagByID finds a tag by ID, returns nil if not found.
func (s *Snapshot) GetTagByID(id string) *Tag {
	for i := range s.Tags {
		if s.Tags[i].ID == id {
			return &s.Tags[i]
		}
	}
	return nil
}

// remap rewrites ids through m, dropping duplicates produced by the mapping.
func remap(ids []string, m map[string]string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if mapped, ok := m[id]; ok {
			id = mapped
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
