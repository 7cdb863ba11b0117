// Package scan builds file trees of a project and samples source previews
// from them.
package scan

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"codelens/internal/logging"
)

// DefaultIgnore lists entry names never included in a tree, in addition to
// hidden entries.
var DefaultIgnore = []string{"node_modules", "target", ".git"}

// FileNode is one entry of a scanned tree. Children is nil for files.
type FileNode struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	IsDirectory bool       `json:"isDirectory"`
	Children    []FileNode `json:"children,omitempty"`
}

// MarshalJSON emits children for every directory, even an empty one, and
// never for files.
func (n FileNode) MarshalJSON() ([]byte, error) {
	type file struct {
		Name        string `json:"name"`
		Path        string `json:"path"`
		IsDirectory bool   `json:"isDirectory"`
	}
	type dir struct {
		file
		Children []FileNode `json:"children"`
	}
	base := file{Name: n.Name, Path: n.Path, IsDirectory: n.IsDirectory}
	if !n.IsDirectory {
		return json.Marshal(base)
	}
	children := n.Children
	if children == nil {
		children = []FileNode{}
	}
	return json.Marshal(dir{file: base, Children: children})
}

// TreeOptions tunes Tree.
type TreeOptions struct {
	// Ignore replaces DefaultIgnore when non-nil.
	Ignore []string
	Logger *zap.Logger
}

// Tree scans root recursively. It fails only when root itself cannot be
// stat'ed or listed; unreadable descendants are logged and left out.
func Tree(root string, opts TreeOptions) (FileNode, error) {
	ignore := opts.Ignore
	if ignore == nil {
		ignore = DefaultIgnore
	}
	w := &treeWalker{
		ignore: make(map[string]struct{}, len(ignore)),
		log:    logging.OrNop(opts.Logger),
	}
	for _, name := range ignore {
		if name = strings.TrimSpace(name); name != "" {
			w.ignore[name] = struct{}{}
		}
	}
	clean := filepath.Clean(root)
	node, err := w.build(clean)
	if err != nil {
		return FileNode{}, fmt.Errorf("scan: %s: %w", clean, err)
	}
	return node, nil
}

type treeWalker struct {
	ignore map[string]struct{}
	log    *zap.Logger
}

func (w *treeWalker) build(path string) (FileNode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileNode{}, err
	}
	node := FileNode{Name: filepath.Base(path), Path: path, IsDirectory: info.IsDir()}
	if !node.IsDirectory {
		return node, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return FileNode{}, err
	}
	node.Children = make([]FileNode, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if w.skip(name) {
			continue
		}
		childPath := filepath.Join(path, name)
		if entry.Type()&fs.ModeSymlink != 0 {
			// Linked directories are not followed; they can form cycles.
			if st, err := os.Stat(childPath); err == nil && st.IsDir() {
				w.log.Debug("scan: skipping linked directory", zap.String("path", childPath))
				continue
			}
		}
		child, err := w.build(childPath)
		if err != nil {
			w.log.Debug("scan: skipping entry", zap.String("path", childPath), zap.Error(err))
			continue
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (w *treeWalker) skip(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := w.ignore[name]
	return ok
}
