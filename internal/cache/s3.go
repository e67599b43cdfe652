package cache

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// S3Config locates the bucket holding the archives.
type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string // object key prefix
	Endpoint string // custom endpoint for S3-compatible services
}

// objectAPI is the part of *s3.Client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Store keeps archives in an S3 bucket.
type S3Store struct {
	config S3Config
	client objectAPI
}

// NewS3Store creates a store using the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var awsOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		awsOpts = append(awsOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		})
	}

	return &S3Store{config: cfg, client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

func (s *S3Store) objectKey(name string) string {
	prefix := s.config.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + name
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.objectKey(objectName(key))),
	})
	if isNotFound(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", s.config.Bucket, s.objectKey(objectName(key)))
	}
	return resp.Body, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.ReadSeeker) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(s.objectKey(objectName(key))),
		Body:        r,
		ContentType: aws.String("application/zstd"),
	})
	return errors.Wrapf(err, "put s3://%s/%s", s.config.Bucket, s.objectKey(objectName(key)))
}

func (s *S3Store) Latest(ctx context.Context, prefix string) (string, error) {
	namePrefix := strings.TrimSuffix(objectName(prefix), archiveExt)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.Bucket),
		Prefix: aws.String(s.objectKey(namePrefix)),
	})

	var latest *types.Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", errors.Wrapf(err, "list s3://%s", s.config.Bucket)
		}
		for i := range page.Contents {
			object := &page.Contents[i]
			if !strings.HasSuffix(aws.ToString(object.Key), archiveExt) {
				continue
			}
			if latest == nil || aws.ToTime(object.LastModified).After(aws.ToTime(latest.LastModified)) {
				latest = object
			}
		}
	}
	if latest == nil {
		return "", ErrCacheMiss
	}
	name := strings.TrimPrefix(aws.ToString(latest.Key), s.objectKey(""))
	return strings.TrimSuffix(name, archiveExt), nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
