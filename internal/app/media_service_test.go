package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"travelstory/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func TestMediaService_Upload(t *testing.T) {
	var gotType, gotExt string
	var gotBody []byte
	host := &mockMediaHost{
		prefix: "https://cdn/",
		uploadFn: func(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*domain.MediaObject, error) {
			gotType, gotExt = contentType, ext
			gotBody, _ = io.ReadAll(body)
			return &domain.MediaObject{ID: "abc" + ext, URL: "https://cdn/abc" + ext}, nil
		},
	}
	svc := NewMediaService(host, 1024)

	obj, err := svc.Upload(context.Background(), bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	assert.Equal(t, "abc.png", obj.ID)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, ".png", gotExt)
	assert.Equal(t, pngHeader, gotBody, "sniffed bytes must still reach the host")

	_, err = svc.Upload(context.Background(), bytes.NewReader(jpegHeader), int64(len(jpegHeader)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, ".jpg", gotExt)
}

func TestMediaService_Upload_Rejects(t *testing.T) {
	host := &mockMediaHost{
		uploadFn: func(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*domain.MediaObject, error) {
			t.Error("host must not be called for rejected uploads")
			return nil, nil
		},
	}
	svc := NewMediaService(host, 16)
	ctx := context.Background()

	_, err := svc.Upload(ctx, bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrValidation)

	big := append(append([]byte{}, pngHeader...), make([]byte, 32)...)
	_, err = svc.Upload(ctx, bytes.NewReader(big), int64(len(big)))
	assert.ErrorIs(t, err, ErrValidation)

	gif := []byte("GIF89a\x01\x00\x01\x00")
	_, err = svc.Upload(ctx, bytes.NewReader(gif), int64(len(gif)))
	assert.ErrorIs(t, err, ErrValidation)

	text := []byte("hello world")
	_, err = svc.Upload(ctx, bytes.NewReader(text), int64(len(text)))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMediaService_Upload_HostFailure(t *testing.T) {
	host := &mockMediaHost{
		uploadFn: func(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*domain.MediaObject, error) {
			return nil, errors.New("bucket gone")
		},
	}
	svc := NewMediaService(host, 1024)

	_, err := svc.Upload(context.Background(), bytes.NewReader(pngHeader), int64(len(pngHeader)))
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestMediaService_Delete(t *testing.T) {
	host := &mockMediaHost{
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			switch id {
			case "present.png":
				return true, nil
			case "broken.png":
				return false, errors.New("timeout")
			}
			return false, nil
		},
	}
	svc := NewMediaService(host, 1024)
	ctx := context.Background()

	assert.NoError(t, svc.Delete(ctx, "present.png"))
	assert.ErrorIs(t, svc.Delete(ctx, "absent.png"), ErrMediaNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "broken.png"), ErrUpstream)
	assert.ErrorIs(t, svc.Delete(ctx, "../secret"), ErrValidation)
	assert.ErrorIs(t, svc.Delete(ctx, ""), ErrValidation)
}
