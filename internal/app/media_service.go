package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"travelstory/internal/domain"
)

const sniffLen = 512

var (
	allowedImageTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
	mediaIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// MediaService validates and forwards image uploads to the media host.
type MediaService struct {
	host     domain.MediaHost
	maxBytes int64
}

// NewMediaService creates a MediaService accepting images up to maxBytes.
func NewMediaService(host domain.MediaHost, maxBytes int64) *MediaService {
	return &MediaService{host: host, maxBytes: maxBytes}
}

// MaxBytes is the largest accepted upload.
func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores a JPEG or PNG image. The type is sniffed from the content, the
// client-declared type is ignored.
func (s *MediaService) Upload(ctx context.Context, body io.Reader, size int64) (*domain.MediaObject, error) {
	if size <= 0 {
		return nil, invalid("no file uploaded")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, invalid(fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}

	br := bufio.NewReaderSize(body, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, invalid("could not read upload")
	}
	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, invalid("only JPEG, JPG and PNG files are allowed")
	}

	obj, err := s.host.Upload(ctx, contentType, ext, br, size)
	if err != nil {
		return nil, fmt.Errorf("%w: upload image: %w", ErrUpstream, err)
	}
	return obj, nil
}

// Delete removes an image from the media host by its public id.
func (s *MediaService) Delete(ctx context.Context, publicID string) error {
	if !mediaIDPattern.MatchString(publicID) {
		return invalid("invalid image id")
	}
	found, err := s.host.Delete(ctx, publicID)
	if err != nil {
		return fmt.Errorf("%w: delete image: %w", ErrUpstream, err)
	}
	if !found {
		return ErrMediaNotFound
	}
	return nil
}
