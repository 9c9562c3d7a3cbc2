package importer

import (
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/marks/internal/model"
	"golang.org/x/net/html"
)

// ParseHTMLBookmarks parses Netscape bookmark HTML. Folders become tags whose
// parent is the enclosing folder's tag; a folder name seen twice yields one
// tag with both parents. Each bookmark is tagged with its innermost folder
// and with the labels of its TAGS attribute. Imported bookmarks have no image.
func ParseHTMLBookmarks(r io.Reader) ([]model.Tag, []model.Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, err
	}

	var tags []model.Tag
	var bookmarks []model.Bookmark
	byLabel := make(map[string]int)

	// tagFor returns the id of the tag labelled label, creating it on first
	// use, and adds parentID to its parents.
	tagFor := func(label, parentID string) string {
		i, ok := byLabel[label]
		if !ok {
			tags = append(tags, model.NewTag(model.NewTagParams{Label: label}))
			i = len(tags) - 1
			byLabel[label] = i
		}
		if parentID != "" && parentID != tags[i].ID && !tags[i].HasParent(parentID) {
			tags[i].ParentIDs = append(tags[i].ParentIDs, parentID)
		}
		return tags[i].ID
	}

	// Stack of folder tag ids; empty at the root.
	var folderStack []string
	pending := "" // folder tag waiting for its DL

	top := func() string {
		if len(folderStack) == 0 {
			return ""
		}
		return folderStack[len(folderStack)-1]
	}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				if name := getTextContent(n); name != "" {
					pending = tagFor(name, top())
				}
				return

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					return
				}
				title := getTextContent(n)
				if title == "" {
					title = href
				}

				var tagIDs []string
				if folder := top(); folder != "" {
					tagIDs = append(tagIDs, folder)
				}
				for _, label := range strings.Split(getAttr(n, "tags"), ",") {
					if label = strings.TrimSpace(label); label == "" {
						continue
					}
					if id := tagFor(label, ""); !slices.Contains(tagIDs, id) {
						tagIDs = append(tagIDs, id)
					}
				}

				b := model.NewBookmark(model.NewBookmarkParams{PageURL: href, Title: title, TagIDs: tagIDs})
				if created, ok := parseUnix(getAttr(n, "add_date")); ok {
					b.DateCreated, b.DateModified = created, created
				}
				if modified, ok := parseUnix(getAttr(n, "last_modified")); ok {
					b.DateModified = modified
				}
				bookmarks = append(bookmarks, b)
				return

			case "dl":
				pushed := false
				if pending != "" {
					folderStack = append(folderStack, pending)
					pending = ""
					pushed = true
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}
				if pushed {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return tags, bookmarks, nil
}

func parseUnix(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(ts, 0).UTC(), true
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
