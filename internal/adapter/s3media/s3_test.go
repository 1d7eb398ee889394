package s3media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	headErr error
	delErr  error
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.delErr != nil {
		return nil, f.delErr
	}
	delete(f.objects, aws.ToString(in.Key))
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestHost_UploadAndDelete(t *testing.T) {
	fake := newFakeS3()
	h := NewWithClient(fake, Config{Bucket: "media", PublicURL: "https://cdn.example.com/", Folder: "travel_stories"})
	ctx := context.Background()

	obj, err := h.Upload(ctx, "image/png", ".png", strings.NewReader("png-bytes"), 9)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(obj.ID, ".png"))
	assert.Equal(t, "https://cdn.example.com/travel_stories/"+obj.ID, obj.URL)
	assert.Equal(t, []byte("png-bytes"), fake.objects["travel_stories/"+obj.ID])
	assert.Equal(t, "image/png", fake.types["travel_stories/"+obj.ID])

	id, ok := h.IDFromURL(obj.URL)
	require.True(t, ok)
	assert.Equal(t, obj.ID, id)

	found, err := h.Delete(ctx, obj.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"travel_stories/" + obj.ID}, fake.deleted)

	found, err = h.Delete(ctx, obj.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHost_DefaultPublicURL(t *testing.T) {
	h := NewWithClient(newFakeS3(), Config{Bucket: "b", Endpoint: "http://minio:9000/"})
	obj, err := h.Upload(context.Background(), "image/jpeg", ".jpg", strings.NewReader("x"), 1)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/b/"+obj.ID, obj.URL)

	onAWS := NewWithClient(newFakeS3(), Config{Bucket: "b", Region: "eu-west-1"})
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", onAWS.publicURL)
}

func TestHost_IDFromURL(t *testing.T) {
	h := NewWithClient(newFakeS3(), Config{Bucket: "b", PublicURL: "https://cdn", Folder: "f"})

	cases := []struct {
		url string
		ok  bool
	}{
		{"https://cdn/f/abc.png", true},
		{"https://cdn/abc.png", false},
		{"https://cdn/f/", false},
		{"https://cdn/f/a/b.png", false},
		{"https://other/f/abc.png", false},
		{"/assets/placeholder.png", false},
	}
	for _, tc := range cases {
		_, ok := h.IDFromURL(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
	}
}

func TestHost_DeleteErrors(t *testing.T) {
	fake := newFakeS3()
	h := NewWithClient(fake, Config{Bucket: "b", PublicURL: "https://cdn"})
	ctx := context.Background()

	fake.headErr = &smithy.GenericAPIError{Code: "NoSuchKey"}
	found, err := h.Delete(ctx, "x.png")
	require.NoError(t, err)
	assert.False(t, found)

	fake.headErr = errors.New("connection reset")
	_, err = h.Delete(ctx, "x.png")
	assert.Error(t, err)

	fake.headErr = nil
	fake.objects["x.png"] = []byte("x")
	fake.delErr = &smithy.GenericAPIError{Code: "AccessDenied"}
	_, err = h.Delete(ctx, "x.png")
	assert.Error(t, err)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
