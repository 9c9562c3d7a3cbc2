package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
)

const sampleHTML = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<DL><p>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://go.dev" ADD_DATE="1700000000">Go</A>
    </DL><p>
</DL><p>
`

// resetFlags restores every flag to its default; cobra keeps flag values
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, configDir string, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	rootCmd.SetArgs(append([]string{"--config-dir", configDir}, args...))
	return rootCmd.ExecuteContext(context.Background())
}

func snapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	gw, err := storage.OpenGateway(cfg)
	assert.NilError(t, err)
	defer gw.Close()
	snap, err := storage.LoadSnapshot(context.Background(), gw)
	assert.NilError(t, err)
	return snap
}

func TestCLI_ImportExportBackupRestore(t *testing.T) {
	t.Setenv("MARKS_DATABASE", storage.BackendJSON)
	dir := t.TempDir()

	htmlPath := filepath.Join(dir, "in.html")
	assert.NilError(t, os.WriteFile(htmlPath, []byte(sampleHTML), 0o644))

	assert.NilError(t, run(t, dir, "import", htmlPath))
	snap := snapshot(t)
	assert.Equal(t, len(snap.Bookmarks), 1)
	assert.Assert(t, snap.GetTagByLabel("Dev") != nil)

	// A second import skips the known URL and reuses the tag.
	assert.NilError(t, run(t, dir, "import", htmlPath))
	assert.Equal(t, len(snapshot(t).Bookmarks), 1)

	outPath := filepath.Join(dir, "out.html")
	assert.NilError(t, run(t, dir, "export", outPath))
	out, err := os.ReadFile(outPath)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(out), `HREF="https://go.dev"`))
	assert.Assert(t, strings.Contains(string(out), `TAGS="Dev`))

	assert.NilError(t, run(t, dir, "tags", "add", "Go", "--parent", "Dev", "--alias", "golang"))
	assert.Assert(t, snapshot(t).GetTagByLabel("Go") != nil)

	backupPath := filepath.Join(dir, "lib.json.lz4")
	assert.NilError(t, run(t, dir, "backup", backupPath))

	assert.NilError(t, run(t, dir, "tags", "rm", "Go"))
	assert.Assert(t, snapshot(t).GetTagByLabel("Go") == nil)

	err = run(t, dir, "restore", backupPath)
	assert.ErrorContains(t, err, "--force")

	assert.NilError(t, run(t, dir, "restore", "--force", backupPath))
	restored := snapshot(t)
	tag := restored.GetTagByLabel("Go")
	assert.Assert(t, tag != nil)
	assert.DeepEqual(t, tag.Aliases, []string{"golang"})
	assert.Equal(t, len(restored.Bookmarks), 1)
}

func TestCLI_TagsEdit(t *testing.T) {
	t.Setenv("MARKS_DATABASE", storage.BackendJSON)
	dir := t.TempDir()

	assert.NilError(t, run(t, dir, "tags", "add", "work"))
	assert.NilError(t, run(t, dir, "tags", "add", "urgent", "--parent", "work"))
	assert.NilError(t, run(t, dir, "tags", "edit", "urgent", "--label", "now"))

	snap := snapshot(t)
	now := snap.GetTagByLabel("now")
	work := snap.GetTagByLabel("work")
	assert.Assert(t, now != nil && work != nil)
	assert.DeepEqual(t, now.ParentIDs, []string{work.ID})

	// work cannot become a child of its own child.
	err := run(t, dir, "tags", "edit", "work", "--parent", "now")
	assert.Assert(t, err != nil)

	err = run(t, dir, "tags", "rm", "missing")
	assert.ErrorContains(t, err, "missing")
}
