package store

import (
	"bytes"
	"context"
	"io"
	"time"
)

const EntityObject = "object"

// SignedURLTTL bounds the validity of presigned URLs handed to callers.
const SignedURLTTL = 2 * time.Hour

// Object is a listing entry: key plus the cheap metadata every provider can
// return without fetching the blob.
type Object struct {
	Key       string
	SizeBytes int64
	ETag      string
}

// ObjectStore is the namespaced key-value blob capability everything else is
// built on. Implementations retry transient provider errors internally and
// return DomainError NotFound for absent keys. List visibility may lag a Put
// from another process; no component relies on list consistency for
// correctness.
type ObjectStore interface {
	// Upload writes the full content of r at key, overwriting any previous
	// object.
	Upload(ctx context.Context, key string, r io.Reader) error

	// Download streams the object at key into w.
	Download(ctx context.Context, key string, w io.Writer) error

	Delete(ctx context.Context, key string) error

	// List returns all objects under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Object, error)

	SignedDownloadURL(ctx context.Context, key string) (string, error)
	SignedUploadURL(ctx context.Context, key string) (string, error)
}

// PutBytes and GetBytes adapt the streaming interface for the small control
// records (heads, specs) the services read and write whole.
func PutBytes(ctx context.Context, os ObjectStore, key string, data []byte) error {
	return os.Upload(ctx, key, bytes.NewReader(data))
}

func GetBytes(ctx context.Context, os ObjectStore, key string) ([]byte, error) {
	var buf bytes.Buffer
	if err := os.Download(ctx, key, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Exists reports whether key is present, mapping NotFound to false.
func Exists(ctx context.Context, os ObjectStore, key string) (bool, error) {
	objs, err := os.List(ctx, key)
	if err != nil {
		return false, err
	}
	for _, o := range objs {
		if o.Key == key {
			return true, nil
		}
	}
	return false, nil
}
