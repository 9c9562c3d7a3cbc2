package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/actions"
	"github.com/nikbrunner/marks/internal/library"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
)

var (
	flagTagParents []string
	flagTagAliases []string
	flagTagLabel   string
)

var tagsCmd = &cobra.Command{
	Use:   "tags [parent]",
	Short: "List tags as a tree, or the children of one tag",
	Long: `Tags lists every tag nested under its parents, with the number of inbox
bookmarks carrying it or one of its descendants. A tag with several parents
appears under each of them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTags,
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <label>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsAdd,
}

var tagsEditCmd = &cobra.Command{
	Use:   "edit <label>",
	Short: "Rename a tag or replace its aliases and parents",
	Long: `Edit replaces the label, aliases and parents of a tag. Flags that are not
given keep their current value.`,
	Args: cobra.ExactArgs(1),
	RunE: runTagsEdit,
}

var tagsRmCmd = &cobra.Command{
	Use:   "rm <label>",
	Short: "Delete a tag and remove it from every bookmark",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsRm,
}

func init() {
	tagsAddCmd.Flags().StringSliceVarP(&flagTagParents, "parent", "p", nil, "parent tag label (repeatable)")
	tagsAddCmd.Flags().StringSliceVarP(&flagTagAliases, "alias", "a", nil, "alias (repeatable)")
	tagsEditCmd.Flags().StringSliceVarP(&flagTagParents, "parent", "p", nil, "parent tag label (repeatable)")
	tagsEditCmd.Flags().StringSliceVarP(&flagTagAliases, "alias", "a", nil, "alias (repeatable)")
	tagsEditCmd.Flags().StringVarP(&flagTagLabel, "label", "l", "", "new label")

	tagsCmd.AddCommand(tagsAddCmd)
	tagsCmd.AddCommand(tagsEditCmd)
	tagsCmd.AddCommand(tagsRmCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	counts := lib.View.TagCounts()
	if len(args) == 1 {
		parent, err := tagByLabel(lib, args[0])
		if err != nil {
			return err
		}
		for _, t := range lib.Graph.ListByParentID(parent.ID) {
			fmt.Printf("%s (%d)\n", t.Label, counts[t.ID])
		}
		return nil
	}

	var roots []model.Tag
	for _, opt := range query.TagOptions(lib.Graph, counts) {
		if len(opt.Tag.ParentIDs) == 0 {
			roots = append(roots, opt.Tag)
		}
	}
	for _, t := range roots {
		printTagTree(lib, t, counts, 0, nil)
	}
	return nil
}

// printTagTree prints t and its descendants. path guards against cycles in
// stored data.
func printTagTree(lib *library.Library, t model.Tag, counts map[string]int, depth int, path []string) {
	line := fmt.Sprintf("%s%s (%d)", strings.Repeat("  ", depth), t.Label, counts[t.ID])
	if len(t.Aliases) > 0 {
		line += " aka " + strings.Join(t.Aliases, ", ")
	}
	fmt.Println(line)

	path = append(path, t.ID)
	for _, child := range lib.Graph.ListByParentID(t.ID) {
		if !slices.Contains(path, child.ID) {
			printTagTree(lib, child, counts, depth+1, path)
		}
	}
}

func runTagsAdd(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	parents, err := tagIDs(lib, flagTagParents)
	if err != nil {
		return err
	}
	tag, err := lib.Actions.CreateTag(cmd.Context(), actions.TagInput{
		Label:     args[0],
		Aliases:   flagTagAliases,
		ParentIDs: parents,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created tag %s\n", tag.Label)
	return nil
}

func runTagsEdit(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	tag, err := tagByLabel(lib, args[0])
	if err != nil {
		return err
	}

	in := actions.TagInput{Label: tag.Label, Aliases: tag.Aliases, ParentIDs: tag.ParentIDs}
	if cmd.Flags().Changed("label") {
		in.Label = flagTagLabel
	}
	if cmd.Flags().Changed("alias") {
		in.Aliases = flagTagAliases
	}
	if cmd.Flags().Changed("parent") {
		if in.ParentIDs, err = tagIDs(lib, flagTagParents); err != nil {
			return err
		}
	}

	edited, err := lib.Actions.EditTag(cmd.Context(), tag.ID, in)
	if err != nil {
		return err
	}

	fmt.Printf("Updated tag %s\n", edited.Label)
	return nil
}

func runTagsRm(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd.Context())
	if err != nil {
		return err
	}
	defer lib.Close()

	tag, err := tagByLabel(lib, args[0])
	if err != nil {
		return err
	}
	tagged := len(lib.Bookmarks.ByTagID(tag.ID))
	if err := lib.DeleteTag(cmd.Context(), tag.ID); err != nil {
		return err
	}

	fmt.Printf("Deleted tag %s from %d bookmarks\n", tag.Label, tagged)
	return nil
}

func tagByLabel(lib *library.Library, label string) (model.Tag, error) {
	t, ok := lib.Graph.ByLabel(label)
	if !ok {
		return model.Tag{}, fmt.Errorf("%w: no tag labelled %q", model.ErrNotFound, label)
	}
	return t, nil
}

func tagIDs(lib *library.Library, labels []string) ([]string, error) {
	ids := make([]string, 0, len(labels))
	for _, l := range labels {
		t, err := tagByLabel(lib, l)
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}
