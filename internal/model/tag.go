package model

import (
	"slices"
	"strings"
)

// Tag labels bookmarks. Parents form a DAG: a tag may have several parents.
type Tag struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Aliases   []string `json:"aliases"`
	ParentIDs []string `json:"parentIds"`
}

// NewTagParams holds parameters for creating a new Tag.
type NewTagParams struct {
	Label     string
	Aliases   []string
	ParentIDs []string
}

// NewTag creates a Tag with generated UUID.
func NewTag(params NewTagParams) Tag {
	return Tag{
		ID:        GenerateUUID(),
		Label:     params.Label,
		Aliases:   nonNil(params.Aliases),
		ParentIDs: nonNil(params.ParentIDs),
	}
}

// Clone returns a deep copy of the tag.
func (t Tag) Clone() Tag {
	c := t
	c.Aliases = nonNil(slices.Clone(t.Aliases))
	c.ParentIDs = nonNil(slices.Clone(t.ParentIDs))
	return c
}

// HasParent reports whether id is a direct parent.
func (t Tag) HasParent(id string) bool {
	return slices.Contains(t.ParentIDs, id)
}

// ValidateLabel rejects blank labels.
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return ErrBlankLabel
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
