package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	for _, ok := range []string{"a.webm", "users/1/a.webm", "/lead.webm"} {
		_, err := cleanKey(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "../x", "a/../../x", `..\x`, "a//b"} {
		_, err := cleanKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir() + "/uploads")
	require.NoError(t, err)

	loc, err := s.Put(ctx, RecordingKey("r1"), strings.NewReader("webm-bytes"), 10, common.AudioContentType)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(loc, "r1.webm"))
	assert.True(t, strings.HasPrefix(loc, s.Root()))

	got, err := ReadAll(ctx, s, "r1.webm")
	require.NoError(t, err)
	assert.Equal(t, "webm-bytes", string(got))

	obj, err := s.Get(ctx, "r1.webm")
	require.NoError(t, err)
	assert.Equal(t, int64(10), obj.Size)
	assert.Equal(t, "audio/webm", obj.ContentType)
	require.NoError(t, obj.Body.Close())

	require.NoError(t, s.Delete(ctx, "r1.webm"))
	require.NoError(t, s.Delete(ctx, "r1.webm"), "deleting twice is fine")

	_, err = s.Get(ctx, "r1.webm")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.Put(ctx, "../escape.webm", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(b)),
		ContentLength: aws.Int64(int64(len(b))),
		ContentType:   aws.String(f.types[aws.ToString(in.Key)]),
	}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	s := &S3Store{api: api, bucket: "journal"}

	loc, err := s.Put(ctx, "r1.webm", strings.NewReader("abc"), 3, common.AudioContentType)
	require.NoError(t, err)
	assert.Equal(t, "s3://journal/r1.webm", loc)

	obj, err := s.Get(ctx, "r1.webm")
	require.NoError(t, err)
	b, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "abc", string(b))
	assert.Equal(t, int64(3), obj.Size)
	assert.Equal(t, common.AudioContentType, obj.ContentType)

	require.NoError(t, s.Delete(ctx, "r1.webm"))
	_, err = s.Get(ctx, "r1.webm")
	assert.ErrorIs(t, err, common.ErrNotFound)

	api.putErr = errors.New("access denied")
	_, err = s.Put(ctx, "x", strings.NewReader("x"), 1, "")
	assert.ErrorContains(t, err, "access denied")
}

func TestNewS3Store_Presign(t *testing.T) {
	ctx := context.Background()
	s, err := NewS3Store(ctx, S3Config{
		Bucket:    "journal",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "admin",
		SecretKey: "secretpassword",
		PathStyle: true,
	})
	require.NoError(t, err)

	raw, err := s.PresignGet(ctx, "r1.webm", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/journal/r1.webm", u.Path)
	assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
}

func TestS3Store_PresignError(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })
	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign failed")
	}

	s := &S3Store{bucket: "b"}
	_, err := s.PresignGet(context.Background(), "k", 0)
	assert.ErrorContains(t, err, "sign failed")
}

func TestMinioStore_Presign(t *testing.T) {
	s, err := NewMinioStore(MinioConfig{
		Endpoint:  "127.0.0.1:9000",
		AccessKey: "admin",
		SecretKey: "secretpassword",
		Bucket:    "journal",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	raw, err := s.PresignGet(context.Background(), "r1.webm", 0)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "/journal/r1.webm", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, s)

	s, err = Open(ctx, Config{Backend: "s3", Bucket: "b", Region: "eu-west-1"})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, s)
	_, isPresigner := s.(Presigner)
	assert.True(t, isPresigner)

	_, err = Open(ctx, Config{Backend: "tape"})
	assert.Error(t, err)
}

func TestSplitEndpoint(t *testing.T) {
	host, secure, err := splitEndpoint("https://minio.local:9000/")
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", host)
	assert.True(t, secure)

	host, secure, err = splitEndpoint("127.0.0.1:9000")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", host)
	assert.False(t, secure)
}
