package gcp

import (
	"context"
	"io"
	"net/http"
	"sort"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

// Storage is the GCS-backed object store.
type Storage struct {
	client *gcs.Client
	bucket string
}

func NewStorage(client *gcs.Client, bucket string) *Storage {
	return &Storage{client: client, bucket: bucket}
}

func (s *Storage) Upload(ctx context.Context, key string, r io.Reader) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.InternalError(store.EntityObject, "unable to write "+key, err)
	}
	if err := w.Close(); err != nil {
		return errors.InternalError(store.EntityObject, "unable to finish write "+key, err)
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, key string, w io.Writer) error {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return errors.NotFound(store.EntityObject, key)
		}
		return errors.InternalError(store.EntityObject, "unable to open "+key, err)
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return errors.InternalError(store.EntityObject, "unable to read "+key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return errors.InternalError(store.EntityObject, "unable to delete "+key, err)
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]store.Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var objects []store.Object
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.InternalError(store.EntityObject, "unable to list prefix "+prefix, err)
		}
		objects = append(objects, store.Object{
			Key:       attrs.Name,
			SizeBytes: attrs.Size,
			ETag:      attrs.Etag,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *Storage) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	return s.signedURL(key, http.MethodGet)
}

func (s *Storage) SignedUploadURL(ctx context.Context, key string) (string, error) {
	return s.signedURL(key, http.MethodPut)
}

func (s *Storage) signedURL(key, method string) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Method:  method,
		Expires: time.Now().Add(store.SignedURLTTL),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", errors.InternalError(store.EntityObject, "unable to sign url for "+key, err)
	}
	return url, nil
}
