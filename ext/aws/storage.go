package aws

import (
	"context"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/moorlabs/moor/internal/errors"
	"github.com/moorlabs/moor/internal/store"
)

// Storage is the S3-backed object store. One bucket per backend instance.
type Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewStorage(client *s3.Client, bucket string) *Storage {
	return &Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
}

func (s *Storage) Upload(ctx context.Context, key string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return errors.InternalError(store.EntityObject, "unable to put "+key, err)
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, key string, w io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return errors.NotFound(store.EntityObject, key)
		}
		return errors.InternalError(store.EntityObject, "unable to get "+key, err)
	}
	defer out.Body.Close()
	if _, err := io.Copy(w, out.Body); err != nil {
		return errors.InternalError(store.EntityObject, "unable to read "+key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.InternalError(store.EntityObject, "unable to delete "+key, err)
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]store.Object, error) {
	var objects []store.Object
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.InternalError(store.EntityObject, "unable to list prefix "+prefix, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, store.Object{
				Key:       aws.ToString(obj.Key),
				SizeBytes: aws.ToInt64(obj.Size),
				ETag:      aws.ToString(obj.ETag),
			})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *Storage) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(store.SignedURLTTL))
	if err != nil {
		return "", errors.InternalError(store.EntityObject, "unable to presign download for "+key, err)
	}
	return req.URL, nil
}

func (s *Storage) SignedUploadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(store.SignedURLTTL))
	if err != nil {
		return "", errors.InternalError(store.EntityObject, "unable to presign upload for "+key, err)
	}
	return req.URL, nil
}
