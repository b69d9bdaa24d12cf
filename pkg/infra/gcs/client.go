package gcs

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// Scheme is the URL scheme served by this source
const Scheme = "gs"

// Client reads gs://bucket/object URLs from Cloud Storage
type Client struct {
	storage *storage.Client
}

var _ interfaces.Source = (*Client)(nil)
var _ interfaces.URLValidator = (*Client)(nil)

// NewClient creates a Cloud Storage client with the given credentials options
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	return &Client{storage: c}, nil
}

// Close releases the storage client
func (c *Client) Close() error {
	return c.storage.Close()
}

// Probe returns the object size from its attributes
func (c *Client) Probe(ctx context.Context, rawURL string) (int64, error) {
	obj, err := c.object(rawURL)
	if err != nil {
		return 0, err
	}

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return 0, wrapStorageError(err, "failed to get object attributes", rawURL)
	}
	return attrs.Size, nil
}

// Open starts reading the object
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	obj, err := c.object(rawURL)
	if err != nil {
		return nil, 0, err
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, 0, wrapStorageError(err, "failed to open object", rawURL)
	}
	return reader, reader.Attrs.Size, nil
}

// ValidateURL rejects URLs that do not name an object
func (c *Client) ValidateURL(rawURL string) error {
	_, _, err := ParseURL(rawURL)
	return err
}

func (c *Client) object(rawURL string) (*storage.ObjectHandle, error) {
	bucket, object, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return c.storage.Bucket(bucket).Object(object), nil
}

// ParseURL splits gs://bucket/path/to/object into bucket and object name
func ParseURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", goerr.Wrap(err, "malformed Cloud Storage URL",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("url", rawURL),
		)
	}

	object := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != Scheme || u.Host == "" || object == "" {
		return "", "", goerr.New("Cloud Storage URL must be gs://bucket/object",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("url", rawURL),
		)
	}
	return u.Host, object, nil
}

func wrapStorageError(err error, msg, rawURL string) error {
	opts := []goerr.Option{
		goerr.T(types.ErrTagNetwork),
		goerr.V("url", rawURL),
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		opts = append(opts, goerr.V("not_found", true))
	}
	return goerr.Wrap(err, msg, opts...)
}
