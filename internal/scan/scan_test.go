package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func collectNames(n FileNode, out *[]string) {
	*out = append(*out, n.Name)
	for _, c := range n.Children {
		collectNames(c, out)
	}
}

func TestTreeSkipsHiddenAndIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/index.ts", "x")
	writeFile(t, root, "node_modules/lib/index.js", "x")
	writeFile(t, root, "target/out.rs", "x")
	writeFile(t, root, ".git/HEAD", "x")
	writeFile(t, root, ".env", "x")
	writeFile(t, root, "README.md", "x")

	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	assert.True(t, tree.IsDirectory)
	assert.Equal(t, filepath.Base(root), tree.Name)

	var names []string
	collectNames(tree, &names)
	for _, n := range names {
		assert.NotEqual(t, "node_modules", n)
		assert.NotEqual(t, "target", n)
		assert.False(t, strings.HasPrefix(n, "."), "hidden entry %q", n)
	}
	assert.Contains(t, names, "index.ts")
	assert.Contains(t, names, "README.md")
}

func TestTreeLeavesHaveNoChildren(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b.go", "package b")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	require.Len(t, tree.Children, 2)

	a := tree.Children[0]
	assert.Equal(t, "a", a.Name)
	require.Len(t, a.Children, 1)
	assert.False(t, a.Children[0].IsDirectory)
	assert.Nil(t, a.Children[0].Children)
	assert.Equal(t, filepath.Join(root, "a", "b.go"), a.Children[0].Path)

	raw, err := json.Marshal(tree)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	children := decoded["children"].([]any)
	emptyDir := children[1].(map[string]any)
	assert.Equal(t, []any{}, emptyDir["children"])
	leaf := children[0].(map[string]any)["children"].([]any)[0].(map[string]any)
	_, hasChildren := leaf["children"]
	assert.False(t, hasChildren)
}

func TestTreeCustomIgnore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "vendor/x.go", "x")
	writeFile(t, root, "node_modules/y.js", "y")

	tree, err := Tree(root, TreeOptions{Ignore: []string{"vendor"}})
	require.NoError(t, err)
	var names []string
	collectNames(tree, &names)
	assert.NotContains(t, names, "vendor")
	assert.Contains(t, names, "node_modules")
}

func TestTreeMissingRoot(t *testing.T) {
	_, err := Tree(filepath.Join(t.TempDir(), "nope"), TreeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "scan:")
}

func TestTreeSkipsLinkedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "real/a.go", "x")
	if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	var names []string
	collectNames(tree, &names)
	assert.NotContains(t, names, "loop")
}

func TestSelectSamplesOnlyIndexTs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/index.ts", "console.log('hi')")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = 1")

	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	got, err := SelectSamples(context.Background(), tree, root, SampleOptions{})
	require.NoError(t, err)
	assert.Equal(t, []FilePreview{{RelativePath: "src/index.ts", PreviewText: "console.log('hi')"}}, got)
}

func TestSelectSamplesCapsInTraversalOrder(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 30; i++ {
		writeFile(t, root, fmt.Sprintf("src/f%02d.go", i), "package src")
	}
	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)

	got, err := SelectSamples(context.Background(), tree, root, SampleOptions{})
	require.NoError(t, err)
	require.Len(t, got, DefaultMaxFiles)
	for i, p := range got {
		assert.Equal(t, fmt.Sprintf("src/f%02d.go", i), p.RelativePath)
	}
}

func TestSelectSamplesDepthBound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.go", "a")
	writeFile(t, root, "a/b/c.ts", "b")
	writeFile(t, root, "a/b/c/d.ts", "c")

	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	got, err := SelectSamples(context.Background(), tree, root, SampleOptions{})
	require.NoError(t, err)

	var paths []string
	for _, p := range got {
		paths = append(paths, p.RelativePath)
	}
	assert.ElementsMatch(t, []string{"top.go", "a/b/c.ts"}, paths)
}

func TestSelectSamplesExtensionFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# x")
	writeFile(t, root, "package.json", "{}")
	writeFile(t, root, "Main.JAVA", "class Main {}")

	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	got, err := SelectSamples(context.Background(), tree, root, SampleOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Main.JAVA", got[0].RelativePath)
}

func TestSelectSamplesTruncatesByCharacters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "long.py", strings.Repeat("é", 50))

	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	got, err := SelectSamples(context.Background(), tree, root, SampleOptions{PreviewChars: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, strings.Repeat("é", 10), got[0].PreviewText)
}

func TestSelectSamplesSkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.go", "package b")

	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))

	core, logs := observer.New(zap.WarnLevel)
	got, err := SelectSamples(context.Background(), tree, root, SampleOptions{Logger: zap.New(core)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b.go", got[0].RelativePath)
	assert.Equal(t, 1, logs.FilterMessage("scan: skipping sample").Len())
}

func TestSelectSamplesHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	tree, err := Tree(root, TreeOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SelectSamples(ctx, tree, root, SampleOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHeadChars(t *testing.T) {
	assert.Equal(t, "", HeadChars("abc", 0))
	assert.Equal(t, "ab", HeadChars("abc", 2))
	assert.Equal(t, "abc", HeadChars("abc", 10))
	assert.Equal(t, "日本", HeadChars("日本語", 2))
}
