package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/filesmanager/internal/blobstore"
)

type fakeS3 struct {
	mu            sync.Mutex
	bucketExists  bool
	bucketCreated bool
	objects       map[string][]byte
	failWith      error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, bucketExists: true}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.bucketCreated = true
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func TestPutGetDelete(t *testing.T) {
	client := newFakeS3()
	store := NewWithClient(client, "files", "uploads/")
	ctx := context.Background()

	path := store.NewPath()
	assert.Contains(t, path, "uploads/")

	require.NoError(t, store.Put(ctx, path, []byte("hello")))

	data, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, store.Delete(ctx, path))

	_, err = store.Get(ctx, path)
	assert.ErrorIs(t, err, blobstore.ErrBlobNotFound)
}

func TestTransportErrorsAreNotNotFound(t *testing.T) {
	client := newFakeS3()
	client.failWith = errors.New("connection reset")
	store := NewWithClient(client, "files", "")

	_, err := store.Get(context.Background(), "key")
	require.Error(t, err)
	assert.NotErrorIs(t, err, blobstore.ErrBlobNotFound)

	assert.Error(t, store.Put(context.Background(), "key", []byte("x")))
}

func TestPrepareCreatesMissingBucket(t *testing.T) {
	client := newFakeS3()
	client.bucketExists = false
	store := NewWithClient(client, "files", "")

	require.NoError(t, store.Prepare(context.Background()))
	assert.True(t, client.bucketCreated)
}

func TestPrepareRetriesAfterFailure(t *testing.T) {
	client := newFakeS3()
	client.bucketExists = false
	client.failWith = errors.New("connection refused")
	store := NewWithClient(client, "files", "")

	require.Error(t, store.Prepare(context.Background()))
	assert.False(t, client.bucketCreated)

	client.failWith = nil
	require.NoError(t, store.Prepare(context.Background()))
	assert.True(t, client.bucketCreated)
}

func TestOpenDoesNotContactTheService(t *testing.T) {
	store, err := Open(context.Background(), Config{
		Region:    "us-east-1",
		Bucket:    "files",
		AccessKey: "key",
		SecretKey: "secret",
		Endpoint:  "http://127.0.0.1:1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, store.NewPath())
}
