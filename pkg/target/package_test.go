package target

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
}

func TestMatchFiles_IncludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html")
	writeFile(t, root, "app.js")
	writeFile(t, root, "css/site.css")

	pkg := &Package{Files: StringList{"*.html", "css/*.css"}}
	matched, err := pkg.MatchFiles(root)
	require.NoError(t, err)

	require.Len(t, matched, 2)
	assert.Contains(t, matched[0]+matched[1], "index.html")
}

func TestMatchFiles_DoubleStarPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.js")
	writeFile(t, root, "src/b.js")
	writeFile(t, root, "src/deep/c.js")
	writeFile(t, root, "src/deep/d.css")

	pkg := &Package{Files: StringList{"**/*.js"}}
	matched, err := pkg.MatchFiles(root)
	require.NoError(t, err)
	assert.Len(t, matched, 3)
}

func TestMatchFiles_ExcludeWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt")
	writeFile(t, root, "skip.log")

	pkg := &Package{Exclude: StringList{"*.log"}}
	matched, err := pkg.MatchFiles(root)
	require.NoError(t, err)

	require.Len(t, matched, 1)
	assert.Contains(t, matched[0], "keep.txt")
}

func TestMatchFiles_EmptyFilesMatchesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one")
	writeFile(t, root, "dir/two")

	pkg := &Package{}
	matched, err := pkg.MatchFiles(root)
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestMatchesFile(t *testing.T) {
	pkg := &Package{
		Files:   StringList{"**/*.js"},
		Exclude: StringList{"**/*.min.js"},
	}

	assert.True(t, pkg.MatchesFile("src/app.js"))
	assert.False(t, pkg.MatchesFile("src/app.min.js"))
	assert.False(t, pkg.MatchesFile("style.css"))
}

func TestMatchesGlobs(t *testing.T) {
	assert.True(t, MatchesGlobs([]string{"*.log"}, "debug.log"))
	assert.False(t, MatchesGlobs(nil, "debug.log"))
	assert.True(t, MatchesGlobs([]string{"**/node_modules/*"}, "a/node_modules/x"))
}

func TestMatchesGlobs_SubtreePatterns(t *testing.T) {
	assert.True(t, MatchesGlobs([]string{"dist/**"}, "dist/js/app.js"))
	assert.False(t, MatchesGlobs([]string{"dist/**"}, "src/app.js"))
	assert.True(t, MatchesGlobs([]string{"**"}, "any/depth/file.txt"))
}
