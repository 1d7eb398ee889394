package domain

import (
	"context"
	"io"
)

// MediaObject is an image stored on the media host.
type MediaObject struct {
	ID  string `json:"public_id"`
	URL string `json:"imageUrl"`
}

// MediaHost is the port for binary image storage.
type MediaHost interface {
	// Upload stores body and returns its durable URL and opaque id.
	Upload(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*MediaObject, error)
	// Delete removes the object. It reports false when no such object exists.
	Delete(ctx context.Context, id string) (bool, error)
	// IDFromURL returns the object id when url points at this host.
	IDFromURL(url string) (string, bool)
}
