package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"corpusdash/internal/domain"
)

// LocalSource serves files below a directory. Every open goes through an
// os.Root so neither ".." nor symlinks can leave it.
type LocalSource struct {
	dir  string
	root *os.Root
}

var _ Source = (*LocalSource)(nil)

func NewLocalSource(dir string) (*LocalSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve file root %q: %w", dir, err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open file root %q: %w", abs, err)
	}
	return &LocalSource{dir: abs, root: root}, nil
}

func (s *LocalSource) Dir() string { return s.dir }

func (s *LocalSource) Close() error { return s.root.Close() }

// relative accepts absolute paths that already point inside the root, the
// form the result files were historically linked with.
func (s *LocalSource) relative(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if filepath.IsAbs(trimmed) {
		rel, err := filepath.Rel(s.dir, filepath.Clean(trimmed))
		if err != nil || !filepath.IsLocal(rel) {
			return "", domain.ValidationError{Field: "path", Msg: "must stay inside the file root"}
		}
		trimmed = rel
	}
	clean, err := CleanName(trimmed)
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(clean), nil
}

func (s *LocalSource) Open(ctx context.Context, name string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := s.relative(name)
	if err != nil {
		return nil, err
	}

	f, err := s.root.Open(rel)
	if err != nil {
		return nil, classifyOpen(name, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, domain.InternalError{Msg: "stat " + name, Err: err}
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, domain.ValidationError{Field: "path", Msg: "is a directory"}
	}

	ct, body, err := sniff(f)
	if err != nil {
		_ = f.Close()
		return nil, domain.InternalError{Msg: "read " + name, Err: err}
	}
	return &Object{
		Name:        filepath.ToSlash(rel),
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ContentType: ct,
		Body:        body,
	}, nil
}

func classifyOpen(name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.NotFoundError{Resource: "file " + name, Err: err}
	case strings.Contains(err.Error(), "escapes from parent"):
		return domain.ValidationError{Field: "path", Msg: "must stay inside the file root", Err: err}
	}
	return domain.InternalError{Msg: "open " + name, Err: err}
}
