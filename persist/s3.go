package persist

import (
	"bytes"
	"context"
	"io"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/krisalay/memo-cache/types"
)

// S3API is the slice of the S3 client the backend uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3v2.GetObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3v2.PutObjectInput, optFns ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error)
}

// S3 keeps the snapshot as a single object, s3://bucket/key.
type S3 struct {
	client S3API
	bucket string
	key    string
}

func NewS3(client S3API, bucket, key string) (*S3, error) {
	if client == nil || bucket == "" || key == "" {
		return nil, types.Errorf(types.ErrInvalidOption, "s3 backend needs a client, bucket and key")
	}
	return &S3{client: client, bucket: bucket, key: key}, nil
}

func (s *S3) Location() string { return "s3://" + s.bucket + "/" + s.key }

func (s *S3) Load(ctx context.Context) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3v2.GetObjectInput{
		Bucket: awsv2.String(s.bucket),
		Key:    awsv2.String(s.key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		var nf *s3types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, false, nil
		}
		return nil, false, types.IOError(err, "get "+s.Location())
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, types.IOError(err, "read "+s.Location())
	}
	return b, true, nil
}

func (s *S3) Save(ctx context.Context, blob []byte) error {
	_, err := s.client.PutObject(ctx, &s3v2.PutObjectInput{
		Bucket:        awsv2.String(s.bucket),
		Key:           awsv2.String(s.key),
		Body:          bytes.NewReader(blob),
		ContentLength: awsv2.Int64(int64(len(blob))),
	})
	if err != nil {
		return types.IOError(err, "put "+s.Location())
	}
	return nil
}

// awsOptions holds optional overrides for AWS config loading.
type awsOptions struct {
	profile  string
	region   string
	endpoint string
}

// AWSOption customizes how the S3 client is built.
// With no options the shell's AWS setup is inherited (AWS_PROFILE, shared
// config, env, IMDS).
type AWSOption func(*awsOptions)

func WithProfile(profile string) AWSOption {
	return func(o *awsOptions) { o.profile = profile }
}

func WithRegion(region string) AWSOption {
	return func(o *awsOptions) { o.region = region }
}

// WithEndpoint points the client at an S3 compatible server (MinIO,
// localstack). Path style addressing is switched on with it.
func WithEndpoint(endpoint string) AWSOption {
	return func(o *awsOptions) { o.endpoint = endpoint }
}

// NewS3Client loads AWS config and builds an S3 client from it.
func NewS3Client(ctx context.Context, opts ...AWSOption) (*s3v2.Client, error) {
	var o awsOptions
	for _, opt := range opts {
		opt(&o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	return s3v2.NewFromConfig(cfg, func(so *s3v2.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = awsv2.String(o.endpoint)
			so.UsePathStyle = true
		}
	}), nil
}
