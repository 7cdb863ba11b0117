package scan

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"codelens/internal/logging"
	"codelens/internal/safeio"
)

const (
	DefaultMaxFiles     = 20
	DefaultMaxDepth     = 3
	DefaultPreviewChars = 1000
)

// DefaultSourceExtensions is the allow-list used to pick sample files.
var DefaultSourceExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".mjs", ".vue", ".svelte",
	".py", ".go", ".rs", ".java", ".kt", ".scala", ".swift",
	".c", ".h", ".cc", ".cpp", ".hpp", ".cs",
	".rb", ".php", ".html", ".css", ".scss",
}

// FilePreview is the head of one sampled file.
type FilePreview struct {
	RelativePath string `json:"relativePath"`
	PreviewText  string `json:"previewText"`
}

// SampleOptions bounds SelectSamples. Zero values take the defaults.
type SampleOptions struct {
	MaxFiles     int
	MaxDepth     int // the root is depth 0
	PreviewChars int // in characters, not bytes
	Extensions   []string
	Logger       *zap.Logger
}

func (o SampleOptions) withDefaults() SampleOptions {
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.PreviewChars <= 0 {
		o.PreviewChars = DefaultPreviewChars
	}
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultSourceExtensions
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// SelectSamples walks tree depth-first in child order and returns previews of
// up to MaxFiles source files no deeper than MaxDepth. Files are read through
// a SafeFS rooted at root; unreadable files are logged and skipped.
func SelectSamples(ctx context.Context, tree FileNode, root string, opts SampleOptions) ([]FilePreview, error) {
	opts = opts.withDefaults()
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, err
	}
	s := &sampler{
		ctx:     ctx,
		fs:      fsys,
		root:    filepath.Clean(root),
		opts:    opts,
		allowed: extensionSet(opts.Extensions),
		out:     make([]FilePreview, 0, opts.MaxFiles),
	}
	if err := s.visit(tree, 0); err != nil {
		return nil, err
	}
	return s.out, nil
}

type sampler struct {
	ctx     context.Context
	fs      *safeio.SafeFS
	root    string
	opts    SampleOptions
	allowed map[string]struct{}
	out     []FilePreview
}

func (s *sampler) full() bool { return len(s.out) >= s.opts.MaxFiles }

func (s *sampler) visit(node FileNode, depth int) error {
	if s.full() || depth > s.opts.MaxDepth {
		return nil
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if node.IsDirectory {
		for _, child := range node.Children {
			if s.full() {
				return nil
			}
			if err := s.visit(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if !IsSourceFile(node.Name, s.allowed) {
		return nil
	}

	rel, err := filepath.Rel(s.root, node.Path)
	if err != nil {
		s.opts.Logger.Warn("scan: skipping sample", zap.String("path", node.Path), zap.Error(err))
		return nil
	}
	// Each rune is at most UTFMax bytes, so this prefix always holds
	// PreviewChars characters when the file has that many.
	head, err := s.fs.ReadPrefix(rel, int64(s.opts.PreviewChars)*utf8.UTFMax)
	if err != nil {
		s.opts.Logger.Warn("scan: skipping sample", zap.String("path", node.Path), zap.Error(err))
		return nil
	}
	s.out = append(s.out, FilePreview{
		RelativePath: filepath.ToSlash(rel),
		PreviewText:  HeadChars(string(head), s.opts.PreviewChars),
	})
	return nil
}

// IsSourceFile reports whether name has an extension in allowed. Keys of
// allowed are lowercase with a leading dot.
func IsSourceFile(name string, allowed map[string]struct{}) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := allowed[ext]
	return ok
}

// HeadChars returns the first n characters of s.
func HeadChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func extensionSet(exts []string) map[string]struct{} {
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return allowed
}
