package publish

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// s3API is the subset of *s3.Client the backend uses.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func newS3Client(ctx context.Context, cfg S3Config) (s3API, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

type s3Backend struct {
	cfg S3Config
	api s3API
}

func (b *s3Backend) key(a artifact, version string) string {
	return Key(b.cfg.Strategy, b.cfg.Prefix, version, a.SHA1, a.Name)
}

func (b *s3Backend) location(key string) string {
	if b.cfg.Endpoint != "" {
		return joinURL(strings.TrimRight(b.cfg.Endpoint, "/")+"/"+b.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.cfg.Bucket, b.cfg.Region, key)
}

func (b *s3Backend) exists(ctx context.Context, key string) (bool, error) {
	_, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if stderrors.As(err, &notFound) {
		return false, nil
	}
	if f := s3Failure(err); f.Status == 404 && f.Classification != "bucket not found" {
		return false, nil
	}
	return false, s3Failure(err)
}

func (b *s3Backend) upload(ctx context.Context, key, version string, a artifact) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	metadata := map[string]string{"sha1": a.SHA1}
	if version != "" {
		metadata["version"] = version
	}

	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(a.Size),
		ContentMD5:    aws.String(a.md5Base64()),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      metadata,
	})
	if err != nil {
		return s3Failure(err)
	}
	return nil
}

// s3Failure extracts status, request ID and a classification from an SDK error.
func s3Failure(err error) *failure {
	f := &failure{Err: err}

	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		f.Status = respErr.HTTPStatusCode()
		f.RequestID = respErr.ServiceRequestID()
		f.Classification = classify(f.Status)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			f.Classification = "bucket not found"
		case "AccessDenied", "AllAccessDisabled":
			f.Classification = "access denied"
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			f.Classification = "auth failed"
		case "BadDigest", "InvalidDigest":
			f.Classification = "checksum mismatch"
		}
	}
	return f
}
