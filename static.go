package bserve

import (
	"context"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/advdv/bserve/internal/pathpattern"
	"github.com/cockroachdb/errors"
)

// ErrFileNotFound is returned by a [FileSource] when the file does not exist.
var ErrFileNotFound = errors.New("file not found")

// FileSource opens files of a static directory. Name is slash separated and
// relative to dir.
type FileSource interface {
	Open(ctx context.Context, dir, name string) (io.ReadCloser, error)
}

// DirSource reads static files from the local filesystem.
type DirSource struct{}

// Open implements [FileSource].
func (DirSource) Open(_ context.Context, dir, name string) (io.ReadCloser, error) {
	p := filepath.Join(dir, filepath.FromSlash(name))

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrFileNotFound, "open %s", p)
	} else if err != nil {
		return nil, errors.Wrapf(err, "open %s", p)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", p)
	}

	if fi.IsDir() {
		_ = f.Close()
		return nil, errors.Wrapf(ErrFileNotFound, "%s is a directory", p)
	}

	return f, nil
}

type staticEntry struct {
	prefix []string
	dirs   []string
}

// StaticDirs maps url path prefixes to one or more directories.
type StaticDirs struct {
	entries []*staticEntry
}

// Add maps prefix to dir. Directories added for the same prefix are tried in
// the order they were added.
func (s *StaticDirs) Add(prefix, dir string) {
	segs := pathpattern.Split(prefix)
	for _, e := range s.entries {
		if slicesEqual(e.prefix, segs) {
			e.dirs = append(e.dirs, dir)
			return
		}
	}

	s.entries = append(s.entries, &staticEntry{prefix: segs, dirs: []string{dir}})
}

// Len returns the number of mapped prefixes.
func (s *StaticDirs) Len() int { return len(s.entries) }

// Serve tries to answer a GET request with a file. The last path segment is the
// file name; the segments between a matching prefix and the file name select a
// sub-directory. It reports whether any prefix matched; when one did but no
// directory had the file the error matches [ErrFileNotFound].
func (s *StaticDirs) Serve(ctx context.Context, src FileSource, w *Response, r *Request) (bool, error) {
	if s == nil || r.Method != MethodGet || len(r.Path) == 0 {
		return false, nil
	}

	parent, name := r.Path[:len(r.Path)-1], r.Path[len(r.Path)-1]

	matched := false
	for _, e := range s.entries {
		if len(e.prefix) > len(parent) || !slicesEqual(e.prefix, parent[:len(e.prefix)]) {
			continue
		}

		matched = true

		rel := append(append([]string{}, parent[len(e.prefix):]...), name)
		if !safeSegments(rel) {
			return true, errors.Wrapf(ErrFileNotFound, "unsafe path %q", r.URLPath())
		}

		for _, dir := range e.dirs {
			ok, err := sendFile(ctx, src, w, dir, path.Join(rel...))
			if err != nil {
				return true, err
			}
			if ok {
				return true, nil
			}
		}
	}

	if matched {
		return true, errors.Wrapf(ErrFileNotFound, "no static file for %q", r.URLPath())
	}

	return false, nil
}

func sendFile(ctx context.Context, src FileSource, w *Response, dir, name string) (bool, error) {
	rc, err := src.Open(ctx, dir, name)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return false, errors.Wrapf(err, "read %s", name)
	}

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}

	w.Header().Set("content-type", ctype)
	w.Send(data)

	return true, nil
}

func safeSegments(segs []string) bool {
	for _, s := range segs {
		if s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
			return false
		}
	}

	return true
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
