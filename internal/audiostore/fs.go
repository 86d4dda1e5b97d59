package audiostore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Object names are "<unix expiry>-<uuid><ext>", so expiry is known without
// reading the file.
var fsName = regexp.MustCompile(`^(\d+)-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]+)$`)

type FS struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewFS(dir string, ttl time.Duration) (*FS, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &FS{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (s *FS) Put(_ context.Context, data []byte, contentType string) (Ref, error) {
	exp := s.now().Add(s.ttl).Truncate(time.Second)
	ext := extension(contentType)
	id := fmt.Sprintf("%d-%s%s", exp.Unix(), uuid.NewString(), ext)

	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return Ref{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Ref{}, err
	}
	if err := tmp.Close(); err != nil {
		return Ref{}, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, id)); err != nil {
		return Ref{}, err
	}

	return Ref{ID: id, ContentType: contentTypeOf(ext), ExpiresAt: exp}, nil
}

func (s *FS) Open(_ context.Context, id string) (*Object, error) {
	exp, ext, ok := parseFSName(id)
	if !ok || !s.now().Before(exp) {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Object{
		ReadCloser: f,
		Ref:        Ref{ID: id, ContentType: contentTypeOf(ext), ExpiresAt: exp},
	}, nil
}

func (s *FS) Sweep(_ context.Context, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		exp, _, ok := parseFSName(e.Name())
		if !ok || now.Before(exp) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func parseFSName(name string) (time.Time, string, bool) {
	m := fsName.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, "", false
	}
	sec, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, "", false
	}
	return time.Unix(sec, 0), m[2], true
}
