package bapp

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/advdv/bserve"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"
)

// S3GetObjectAPI is the part of the S3 client the static file source uses.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source serves static files from a bucket. The directories of the static
// mappings are key prefixes.
type S3Source struct {
	Client S3GetObjectAPI
	Bucket string
}

// NewS3Source inits a file source for the bucket.
func NewS3Source(client S3GetObjectAPI, bucket string) *S3Source {
	return &S3Source{Client: client, Bucket: bucket}
}

// Open implements [bserve.FileSource].
func (s *S3Source) Open(ctx context.Context, dir, name string) (io.ReadCloser, error) {
	key := strings.TrimPrefix(path.Join(dir, name), "/")

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, errors.Wrapf(bserve.ErrFileNotFound, "s3://%s/%s", s.Bucket, key)
	} else if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", s.Bucket, key)
	}

	return out.Body, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}

	return false
}

var _ bserve.FileSource = (*S3Source)(nil)
