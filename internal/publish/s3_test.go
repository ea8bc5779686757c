package publish

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	stderrors "errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
	puts    int
	headErr error
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), meta: make(map[string]map[string]string)}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(body)
	if aws.ToString(in.ContentMD5) != base64.StdEncoding.EncodeToString(sum[:]) {
		return nil, &smithy.GenericAPIError{Code: "BadDigest", Message: "md5 mismatch"}
	}
	f.puts++
	f.objects[aws.ToString(in.Key)] = body
	f.meta[aws.ToString(in.Key)] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func s3Dispatcher(api s3API) *Dispatcher {
	d := newTestDispatcher()
	d.newS3 = func(context.Context, S3Config) (s3API, error) { return api, nil }
	return d
}

func responseError(status int, requestID string, apiErr error) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      apiErr,
		},
		RequestID: requestID,
	}
}

func TestS3PublishIsIdempotent(t *testing.T) {
	fake := newFakeS3()
	d := s3Dispatcher(fake)
	cfg := S3Config{Common: Common{Prefix: "web/"}, Bucket: "artifacts", Region: "us-east-1"}
	artifact := writeArtifact(t, "site.zip", "zip-bytes")

	first, err := d.Publish(context.Background(), artifact, "0.4.0", cfg)
	require.NoError(t, err)
	assert.True(t, first.Uploaded)
	assert.Equal(t, "web/0.4.0/site.zip", first.Key)
	assert.Equal(t, "https://artifacts.s3.us-east-1.amazonaws.com/web/0.4.0/site.zip", first.URL)
	assert.Equal(t, "0.4.0", fake.meta["web/0.4.0/site.zip"]["version"])
	assert.Equal(t, sha1Hex("zip-bytes"), fake.meta["web/0.4.0/site.zip"]["sha1"])

	second, err := d.Publish(context.Background(), artifact, "0.4.0", cfg)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, 1, fake.puts)
}

func TestS3HashStrategyWithEndpoint(t *testing.T) {
	fake := newFakeS3()
	cfg := S3Config{
		Common:   Common{Strategy: StrategyHash},
		Bucket:   "cas",
		Region:   "auto",
		Endpoint: "https://minio.internal:9000/",
	}
	res, err := s3Dispatcher(fake).Publish(context.Background(), writeArtifact(t, "lib.wasm", "wasm"), "", cfg)
	require.NoError(t, err)
	assert.Equal(t, sha1Hex("wasm")+"/lib.wasm", res.Key)
	assert.Equal(t, "https://minio.internal:9000/cas/"+sha1Hex("wasm")+"/lib.wasm", res.URL)
}

func TestS3ProbeErrorFailsOpen(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = responseError(http.StatusInternalServerError, "req-head", &smithy.GenericAPIError{Code: "InternalError"})

	res, err := s3Dispatcher(fake).Publish(context.Background(), writeArtifact(t, "a.zip", "a"), "1.0.0",
		S3Config{Bucket: "b", Region: "r"})
	require.NoError(t, err)
	assert.True(t, res.Uploaded)
}

func TestS3UploadFailureClassification(t *testing.T) {
	tests := []struct {
		code   string
		status int
		class  string
	}{
		{"NoSuchBucket", http.StatusNotFound, "bucket not found"},
		{"AccessDenied", http.StatusForbidden, "access denied"},
		{"InvalidAccessKeyId", http.StatusForbidden, "auth failed"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fake := newFakeS3()
			fake.putErr = responseError(tt.status, "req-"+tt.code, &smithy.GenericAPIError{Code: tt.code, Message: "denied"})

			_, err := s3Dispatcher(fake).Publish(context.Background(), writeArtifact(t, "a.zip", "a"), "1.0.0",
				S3Config{Bucket: "b", Region: "r"})
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errs.ErrUpload))

			class, _ := errs.ContextValue(err, "classification")
			assert.Equal(t, tt.class, class)
			status, _ := errs.ContextValue(err, "status")
			assert.Equal(t, tt.status, status)
			reqID, _ := errs.ContextValue(err, "request_id")
			assert.Equal(t, "req-"+tt.code, reqID)
		})
	}
}

func TestS3MissingBucketOnProbeIsNotTreatedAsAbsent(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = responseError(http.StatusNotFound, "req-1", &smithy.GenericAPIError{Code: "NoSuchBucket"})

	b := &s3Backend{cfg: S3Config{Bucket: "b", Region: "r"}, api: fake}
	found, err := b.exists(context.Background(), "k")
	assert.False(t, found)
	require.Error(t, err)
}
