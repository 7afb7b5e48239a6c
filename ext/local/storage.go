package local

import (
	"context"
	"crypto/md5" // nolint:gosec
	"encoding/hex"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

// Storage keeps objects as plain files under a root directory. It backs the
// single-machine backend and every service test.
type Storage struct {
	fs   afero.Fs
	root string
}

func NewStorage(fs afero.Fs, root string) *Storage {
	return &Storage{fs: fs, root: root}
}

func (s *Storage) path(key string) string {
	return path.Join(s.root, key)
}

func (s *Storage) Upload(ctx context.Context, key string, r io.Reader) error {
	p := s.path(key)
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return errors.InternalError(store.EntityObject, "unable to create parent dir for "+key, err)
	}
	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.InternalError(store.EntityObject, "unable to open "+key, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return errors.InternalError(store.EntityObject, "unable to write "+key, err)
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, key string, w io.Writer) error {
	f, err := s.fs.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound(store.EntityObject, key)
		}
		return errors.InternalError(store.EntityObject, "unable to open "+key, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return errors.InternalError(store.EntityObject, "unable to read "+key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.fs.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.InternalError(store.EntityObject, "unable to delete "+key, err)
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]store.Object, error) {
	var objects []store.Object
	err := afero.Walk(s.fs, s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		key := strings.TrimPrefix(strings.TrimPrefix(p, s.root), "/")
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		etag, err := s.etag(p)
		if err != nil {
			return err
		}
		objects = append(objects, store.Object{Key: key, SizeBytes: info.Size(), ETag: etag})
		return nil
	})
	if err != nil {
		return nil, errors.InternalError(store.EntityObject, "unable to list prefix "+prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *Storage) etag(p string) (string, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New() // nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Signed URLs degrade to file paths locally; there is no access control to
// bound.
func (s *Storage) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	return "file://" + s.path(key), nil
}

func (s *Storage) SignedUploadURL(ctx context.Context, key string) (string, error) {
	return "file://" + s.path(key), nil
}
