package storage

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v6"
)

// MinioBucket implements Bucket over a minio S3-compatible client,
// scoped to a single named bucket.
type MinioBucket struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioBucket connects to an S3-compatible endpoint with the given
// explicit credentials and scopes the client to bucket.
func NewMinioBucket(endpoint, bucket string, creds Credentials, useSSL bool, logger *slog.Logger) (*MinioBucket, error) {
	client, err := minio.New(endpoint, creds.AccessKey, creds.SecretKey, useSSL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	return &MinioBucket{client: client, bucket: bucket, logger: logger}, nil
}

// List returns the keys of all objects under prefix, in listing order.
func (b *MinioBucket) List(prefix string) ([]string, error) {
	done := make(chan struct{})
	defer close(done)

	var keys []string
	for obj := range b.client.ListObjects(b.bucket, prefix, true, done) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing %s/%s: %w", b.bucket, prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	b.logger.Debug("listed objects", "bucket", b.bucket, "prefix", prefix, "count", len(keys))
	return keys, nil
}

// Stat fetches the object's size and content fingerprint.
func (b *MinioBucket) Stat(key string) (ObjectInfo, error) {
	info, err := b.client.StatObject(b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s/%s: %w", b.bucket, key, err)
	}
	return ObjectInfo{
		Key:  key,
		Size: info.Size,
		ETag: strings.Trim(info.ETag, `"`),
	}, nil
}

// Fetch opens the object's content stream. The caller closes it.
func (b *MinioBucket) Fetch(key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", b.bucket, key, err)
	}
	return obj, nil
}

// Download streams the object into w, reporting byte deltas to observe.
func (b *MinioBucket) Download(key string, w io.Writer, observe ObserveFunc) (int64, error) {
	obj, err := b.Fetch(key)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	var r io.Reader = obj
	if observe != nil {
		r = &observingReader{reader: obj, observe: observe}
	}

	n, err := io.Copy(w, r)
	if err != nil {
		return n, fmt.Errorf("downloading %s/%s: %w", b.bucket, key, err)
	}
	return n, nil
}

// observingReader reports each read's size to an observer as the bytes
// flow through.
type observingReader struct {
	reader  io.Reader
	observe ObserveFunc
}

func (o *observingReader) Read(p []byte) (int, error) {
	n, err := o.reader.Read(p)
	if n > 0 {
		o.observe(int64(n))
	}
	return n, err
}
