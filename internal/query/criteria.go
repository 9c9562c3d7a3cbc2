// Package query turns the bookmark collection into the filtered, sorted and
// paginated list the UI displays. Nothing in this package mutates bookmarks.
package query

import (
	"fmt"
	"strings"
)

// DefaultPageSize is the number of bookmarks per page when none is configured.
const DefaultPageSize = 21

// TaggedFilter restricts bookmarks by whether they carry any tag.
type TaggedFilter int

const (
	TaggedAny TaggedFilter = iota
	TaggedOnly
	UntaggedOnly
)

func (f TaggedFilter) String() string {
	switch f {
	case TaggedOnly:
		return "tagged"
	case UntaggedOnly:
		return "untagged"
	default:
		return "any"
	}
}

// Next cycles any → tagged → untagged → any.
func (f TaggedFilter) Next() TaggedFilter {
	return (f + 1) % 3
}

// Sort keys. Keys outside the numeric and date families compare as strings.
const (
	SortRating        = "rating"
	SortWidth         = "width"
	SortHeight        = "height"
	SortDuration      = "duration"
	SortSize          = "size"
	SortDateCreated   = "dateCreated"
	SortDateModified  = "dateModified"
	SortTitle         = "title"
	SortOriginalTitle = "originalTitle"
	SortPageURL       = "pageUrl"
	SortImageHash     = "imageHash"
	SortImagePath     = "imagePath"
	SortID            = "id"
)

// SortKeys lists the keys offered by the UI, in cycling order.
var SortKeys = []string{SortDateCreated, SortDateModified, SortRating, SortTitle, SortPageURL}

// Criteria is the user's current view state. It is never persisted.
type Criteria struct {
	Archived           bool
	IncludeDescendants bool
	Included           []string
	Excluded           []string
	Tagged             TaggedFilter
	SortKey            string
	SortDesc           bool
	Page               int
	PageSize           int
}

// DefaultCriteria returns the criteria a fresh view starts with.
func DefaultCriteria() Criteria {
	return Criteria{
		IncludeDescendants: true,
		Included:           []string{},
		Excluded:           []string{},
		SortKey:            SortDateCreated,
		SortDesc:           true,
		Page:               1,
		PageSize:           DefaultPageSize,
	}
}

// Clone returns a deep copy.
func (c Criteria) Clone() Criteria {
	out := c
	out.Included = append([]string{}, c.Included...)
	out.Excluded = append([]string{}, c.Excluded...)
	return out
}

// String renders the criteria for the status line and logs.
func (c Criteria) String() string {
	var sb strings.Builder
	if c.Archived {
		sb.WriteString("archive")
	} else {
		sb.WriteString("inbox")
	}
	dir := "asc"
	if c.SortDesc {
		dir = "desc"
	}
	fmt.Fprintf(&sb, " | sort %s %s", c.SortKey, dir)
	if c.Tagged != TaggedAny {
		fmt.Fprintf(&sb, " | %s", c.Tagged)
	}
	if n := len(c.Included); n > 0 {
		fmt.Fprintf(&sb, " | +%d", n)
	}
	if n := len(c.Excluded); n > 0 {
		fmt.Fprintf(&sb, " | -%d", n)
	}
	return sb.String()
}
