package audiostore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const expiresKey = "expires-at"

// GCS stores clips under prefix in a bucket. Expiry lives in the object
// metadata and in CustomTime, so a bucket lifecycle rule on days since
// custom time can back up Sweep.
type GCS struct {
	bucket *storage.BucketHandle
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewGCS(client *storage.Client, bucket, prefix string, ttl time.Duration) *GCS {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &GCS{
		bucket: client.Bucket(bucket),
		prefix: strings.Trim(prefix, "/"),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *GCS) object(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + "/" + id
}

func (s *GCS) Put(ctx context.Context, data []byte, contentType string) (Ref, error) {
	exp := s.now().Add(s.ttl).Truncate(time.Second)
	id := uuid.NewString() + extension(contentType)

	w := s.bucket.Object(s.object(id)).NewWriter(ctx)
	w.ContentType = contentType
	w.CustomTime = exp
	w.Metadata = map[string]string{expiresKey: exp.UTC().Format(time.RFC3339)}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return Ref{}, fmt.Errorf("write %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return Ref{}, fmt.Errorf("close %s: %w", id, err)
	}

	return Ref{ID: id, ContentType: contentType, ExpiresAt: exp}, nil
}

func (s *GCS) Open(ctx context.Context, id string) (*Object, error) {
	if !validGCSID(id) {
		return nil, ErrNotFound
	}

	obj := s.bucket.Object(s.object(id))
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	exp, ok := expiresAt(attrs)
	if ok && !s.now().Before(exp) {
		return nil, ErrNotFound
	}

	r, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Object{
		ReadCloser: r,
		Ref:        Ref{ID: id, ContentType: attrs.ContentType, ExpiresAt: exp},
	}, nil
}

func (s *GCS) Sweep(ctx context.Context, now time.Time) (int, error) {
	q := &storage.Query{}
	if s.prefix != "" {
		q.Prefix = s.prefix + "/"
	}

	removed := 0
	it := s.bucket.Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, err
		}

		exp, ok := expiresAt(attrs)
		if !ok || now.Before(exp) {
			continue
		}
		err = s.bucket.Object(attrs.Name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return removed, fmt.Errorf("delete %s: %w", attrs.Name, err)
		}
		removed++
	}
	return removed, nil
}

func expiresAt(attrs *storage.ObjectAttrs) (time.Time, bool) {
	if raw, ok := attrs.Metadata[expiresKey]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, true
		}
	}
	if !attrs.CustomTime.IsZero() {
		return attrs.CustomTime, true
	}
	return time.Time{}, false
}

func validGCSID(id string) bool {
	ext := path.Ext(id)
	_, err := uuid.Parse(strings.TrimSuffix(id, ext))
	return err == nil && ext != "" && !strings.ContainsAny(id, "/\\")
}
