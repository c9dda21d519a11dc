package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Container is an implementation of Container backed by an AWS S3 bucket.
// The client is created on first use and shared by all callers afterwards.
type S3Container struct {
	opts   AWSOptions
	bucket string

	mu     sync.Mutex
	client s3iface.S3API
}

func NewS3Container(opts AWSOptions, bucket string) *S3Container {
	return &S3Container{
		opts:   opts,
		bucket: bucket,
	}
}

// NewS3ContainerWithClient returns a container using the given client, which
// is mostly useful for tests.
func NewS3ContainerWithClient(client s3iface.S3API, bucket string) *S3Container {
	return &S3Container{
		bucket: bucket,
		client: client,
	}
}

func (s *S3Container) Ensure(ctx context.Context) error {
	client, err := s.ensureClient()
	if err != nil {
		return err
	}
	input := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	}
	if r := s.opts.Region; r != "" && r != "us-east-1" {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(r),
		}
	}
	_, err = client.CreateBucketWithContext(ctx, input)
	if err != nil && !hasCode(err, s3.ErrCodeBucketAlreadyOwnedByYou, s3.ErrCodeBucketAlreadyExists) {
		return fmt.Errorf("could not ensure bucket %q exists: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Container) Put(ctx context.Context, name string, value []byte) error {
	client, err := s.ensureClient()
	if err != nil {
		return err
	}
	_, err = client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, name, err)
	}
	return nil
}

func (s *S3Container) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	client, err := s.ensureClient()
	if err != nil {
		return nil, err
	}
	output, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) || hasCode(err, s3.ErrCodeNoSuchKey) {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, name, err)
	}
	return output.Body, nil
}

func (s *S3Container) Delete(ctx context.Context, name string) error {
	client, err := s.ensureClient()
	if err != nil {
		return err
	}
	_, err = client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", s.bucket, name, err)
	}
	return nil
}

func (s *S3Container) Walk(ctx context.Context, fn func(name string) error) error {
	client, err := s.ensureClient()
	if err != nil {
		return err
	}
	var fnErr error
	err = client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, object := range page.Contents {
			if fnErr = fn(aws.StringValue(object.Key)); fnErr != nil {
				return false
			}
		}
		return true
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("s3 list %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Container) ensureClient() (s3iface.S3API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	sess, err := newSession(s.opts, true)
	if err != nil {
		return nil, err
	}
	s.client = s3.New(sess)
	return s.client, nil
}
