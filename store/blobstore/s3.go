// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blobstore

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used by S3Blobstore.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Blobstore stores blobs as objects below a prefix of an S3 bucket.
type S3Blobstore struct {
	bucket string
	prefix string
	client S3API
}

var _ Blobstore = &S3Blobstore{}

// NewS3Blobstore returns a Blobstore for |bucket| using |client|.
func NewS3Blobstore(client S3API, bucket, prefix string) *S3Blobstore {
	return &S3Blobstore{bucket: bucket, prefix: prefix, client: client}
}

// OpenS3Blobstore creates an S3 client from the default AWS configuration
// chain (environment, shared config, instance role).
func OpenS3Blobstore(ctx context.Context, bucket, prefix string) (*S3Blobstore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewS3Blobstore(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (bs *S3Blobstore) Path() string {
	return path.Join(bs.bucket, bs.prefix)
}

func (bs *S3Blobstore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := bs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bs.bucket),
		Key:    aws.String(bs.absKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, err
}

func (bs *S3Blobstore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := bs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bs.bucket),
		Key:    aws.String(bs.absKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, NotFound{key}
		}
		return nil, err
	}
	return out.Body, nil
}

func (bs *S3Blobstore) Put(ctx context.Context, key string, totalSize int64, reader io.Reader) error {
	_, err := bs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bs.bucket),
		Key:           aws.String(bs.absKey(key)),
		Body:          reader,
		ContentLength: aws.Int64(totalSize),
	})
	return err
}

func (bs *S3Blobstore) absKey(key string) string {
	return path.Join(bs.prefix, key)
}

func isS3NotFound(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
