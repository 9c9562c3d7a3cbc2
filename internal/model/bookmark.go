package model

import (
	"slices"
	"time"
)

// Rating bounds for a bookmark.
const (
	MinRating = 0
	MaxRating = 9
)

// Bookmark represents a captured page with its screenshot and metadata.
type Bookmark struct {
	ID            string    `json:"id"`
	PageURL       string    `json:"pageUrl"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"originalTitle"`
	DateCreated   time.Time `json:"dateCreated"`
	DateModified  time.Time `json:"dateModified"`
	ImageHash     string    `json:"imageHash"` // empty for bookmarks without a screenshot
	ImagePath     string    `json:"imagePath"`
	Rating        int       `json:"rating"`
	IsArchived    bool      `json:"isArchived"`
	IsSelected    bool      `json:"-"` // UI-local, never persisted
	TagIDs        []string  `json:"tagIds"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	PageURL   string
	Title     string
	ImageHash string
	ImagePath string
	TagIDs    []string
}

// NewBookmark creates a Bookmark with generated UUID and timestamps.
func NewBookmark(params NewBookmarkParams) Bookmark {
	tagIDs := params.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}

	now := time.Now().UTC()
	return Bookmark{
		ID:            GenerateUUID(),
		PageURL:       params.PageURL,
		Title:         params.Title,
		OriginalTitle: params.Title,
		DateCreated:   now,
		DateModified:  now,
		ImageHash:     params.ImageHash,
		ImagePath:     params.ImagePath,
		TagIDs:        tagIDs,
	}
}

// Clone returns a deep copy of the bookmark.
func (b Bookmark) Clone() Bookmark {
	c := b
	c.TagIDs = slices.Clone(b.TagIDs)
	if c.TagIDs == nil {
		c.TagIDs = []string{}
	}
	return c
}

// HasTag reports whether the tag is directly assigned.
func (b Bookmark) HasTag(tagID string) bool {
	return slices.Contains(b.TagIDs, tagID)
}

// IsTagged reports whether any tag is directly assigned.
func (b Bookmark) IsTagged() bool {
	return len(b.TagIDs) > 0
}

// ClampRating forces a rating into [MinRating, MaxRating].
func ClampRating(rating int) int {
	return max(MinRating, min(MaxRating, rating))
}

// ValidateRating returns ErrRatingOutOfRange for ratings outside [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrRatingOutOfRange
	}
	return nil
}
