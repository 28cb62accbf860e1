// Package files reads result and dataset files from a sandboxed root, either
// a local directory or an object-storage bucket.
package files

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"corpusdash/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

// Object is an open file. Callers must close Body.
type Object struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
	Body        io.ReadCloser
}

type Source interface {
	Open(ctx context.Context, name string) (*Object, error)
}

// CleanName validates a client-supplied path and returns it in slash form,
// relative to the source root.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ValidationError{Field: "path", Msg: "is required"}
	}
	name = filepath.ToSlash(name)
	if strings.ContainsRune(name, 0) || path.IsAbs(name) || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", domain.ValidationError{Field: "path", Msg: "must stay inside the file root"}
	}
	return path.Clean(name), nil
}

const sniffLen = 3072

type sniffedBody struct {
	io.Reader
	io.Closer
}

// sniff detects the content type from the first bytes of rc and returns a
// body that still yields those bytes.
func sniff(rc io.ReadCloser) (string, io.ReadCloser, error) {
	br := bufio.NewReaderSize(rc, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	return mimetype.Detect(head).String(), sniffedBody{Reader: br, Closer: rc}, nil
}

// BaseName is the last element of an object name, used for downloads.
func BaseName(name string) string {
	return path.Base(filepath.ToSlash(name))
}
