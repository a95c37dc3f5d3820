package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
)

// ErrInvalidGCSURI is returned for a source that is not a gs:// URI.
var ErrInvalidGCSURI = errors.New("invalid GCS URI")

// GCSLoader loads change logs from a Cloud Storage bucket. It holds a shared
// storage client; call Close when done.
type GCSLoader struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSLoader creates a loader for a URI such as "gs://bucket/exports/2024".
// It assumes Application Default Credentials are configured.
func NewGCSLoader(ctx context.Context, uri string) (*GCSLoader, error) {
	bucket, prefix, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSLoader: creating storage client: %w", err)
	}

	return &GCSLoader{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close closes the storage client.
func (l *GCSLoader) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

// Load reads every .json object under <prefix>/<kind dir>/. Objects are
// listed in lexical name order, so events come back in the same order as
// DirLoader would return them.
func (l *GCSLoader) Load(ctx context.Context, kind entity.Kind) ([]events.ChangeEvent, error) {
	bkt := l.client.Bucket(l.bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: ObjectPrefix(l.prefix, kind)})

	var out []events.ChangeEvent
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GCSLoader.Load: listing gs://%s/%s: %w", l.bucket, l.prefix, err)
		}
		if !isEventFile(attrs.Name) {
			continue
		}

		data, err := l.fetch(ctx, attrs.Name)
		if err != nil {
			return nil, err
		}
		ev, err := events.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("GCSLoader.Load: gs://%s/%s: %w", l.bucket, attrs.Name, err)
		}
		out = append(out, ev)
	}

	return out, nil
}

func (l *GCSLoader) fetch(ctx context.Context, object string) ([]byte, error) {
	rc, err := l.client.Bucket(l.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCSLoader.fetch: reading object %s/%s: %w", l.bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("GCSLoader.fetch: reading bytes: %w", err)
	}
	return data, nil
}

// IsGCSURI reports whether source names a Cloud Storage location.
func IsGCSURI(source string) bool {
	return strings.HasPrefix(source, "gs://")
}

// ParseGCSURI splits "gs://bucket/some/prefix" into bucket and prefix. The
// prefix may be empty.
func ParseGCSURI(uri string) (bucket, prefix string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidGCSURI, uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("%w (no bucket): %s", ErrInvalidGCSURI, uri)
	}
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}

// ObjectPrefix returns the object name prefix under which a kind's events
// are stored.
func ObjectPrefix(prefix string, kind entity.Kind) string {
	return path.Join(prefix, kind.Dir()) + "/"
}
