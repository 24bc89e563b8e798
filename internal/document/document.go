package document

import (
	"context"
	"errors"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

var (
	// ErrNoContent is returned by Load when nothing has been written yet.
	ErrNoContent = errors.New("document: no content")

	// ErrWrite wraps bucket errors returned by Replace.
	ErrWrite = errors.New("document: write failed")
)

const contentType = "text/html; charset=utf-8"

// Document is a rendered page stored in a bucket.
type Document struct {
	bucket   *blob.Bucket
	key      string
	location string
	owned    bool
}

// New returns a Document stored at key in bucket. location is the URL the
// page was loaded from and is used as the default status endpoint.
func New(bucket *blob.Bucket, key, location string) *Document {
	return &Document{bucket: bucket, key: key, location: location}
}

// Open opens bucketURL and returns a Document stored at key. Close releases
// the bucket.
func Open(ctx context.Context, bucketURL, key, location string) (*Document, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	d := New(bucket, key, location)
	d.owned = true
	return d, nil
}

// Location returns the URL the document was loaded from.
func (d *Document) Location() string {
	return d.location
}

// Key returns the object key holding the markup.
func (d *Document) Key() string {
	return d.key
}

// Replace discards the current markup and stores html in its place.
func (d *Document) Replace(ctx context.Context, html string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := d.bucket.WriteAll(ctx, d.key, []byte(html), opts); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, d.key, err)
	}
	return nil
}

// Load returns the current markup.
func (d *Document) Load(ctx context.Context) (string, error) {
	data, err := d.bucket.ReadAll(ctx, d.key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return "", ErrNoContent
		}
		return "", fmt.Errorf("read %s: %w", d.key, err)
	}
	return string(data), nil
}

// Close releases the bucket if the Document opened it.
func (d *Document) Close() error {
	if !d.owned {
		return nil
	}
	return d.bucket.Close()
}
