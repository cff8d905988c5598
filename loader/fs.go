package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// FS loads sources as files from an fs.FS. Source identifiers are
// slash-separated paths relative to the root of the file system.
type FS struct {
	fsys fs.FS
}

// NewFS returns a loader reading from fsys.
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// Dir returns a loader reading files below the directory dir.
func Dir(dir string) *FS {
	return NewFS(os.DirFS(dir))
}

// LoadText reads the whole file named by source.
func (l *FS) LoadText(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, source, err)
	}
	name := path.Clean(strings.TrimPrefix(source, "./"))
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %s: invalid path", ErrFetch, source)
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return checkText(source, string(data))
}
