package audiostore

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, now time.Time) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir(), time.Minute)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func TestFS_PutOpen(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestFS(t, now)

	ref, err := s.Put(ctx, []byte("RIFFdata"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), ref.ExpiresAt.UTC())
	assert.Equal(t, "audio/wav", ref.ContentType)

	obj, err := s.Open(ctx, ref.ID)
	require.NoError(t, err)
	defer obj.Close()

	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(data))
	assert.Equal(t, "audio/wav", obj.ContentType)
}

func TestFS_OpenExpiredOrInvalid(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestFS(t, now)

	ref, err := s.Put(ctx, []byte("x"), "audio/wav")
	require.NoError(t, err)

	testCases := map[string]struct {
		id  string
		now time.Time
	}{
		"should hide expired clip":      {id: ref.ID, now: now.Add(time.Minute)},
		"should reject path traversal":  {id: "../../etc/passwd", now: now},
		"should reject unknown clip":    {id: "1900000000-6f1c1a4e-2b7d-4d6f-9a51-0c7a1f3e9b11.wav", now: now},
		"should reject malformed names": {id: "latest.wav", now: now},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			s.now = func() time.Time { return tc.now }
			_, err := s.Open(ctx, tc.id)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFS_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestFS(t, now)

	old, err := s.Put(ctx, []byte("old"), "audio/wav")
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(45 * time.Second) }
	fresh, err := s.Put(ctx, []byte("fresh"), "audio/mpeg")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.dir+"/README", []byte("keep"), 0o644))

	removed, err := s.Sweep(ctx, now.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, s.dir+"/"+old.ID)
	assert.FileExists(t, s.dir+"/"+fresh.ID)
	assert.FileExists(t, s.dir+"/README")
}

type countingStore struct {
	Store
	sweeps chan time.Time
}

func (c *countingStore) Sweep(_ context.Context, now time.Time) (int, error) {
	select {
	case c.sweeps <- now:
	default:
	}
	return 0, nil
}

func TestRunJanitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cs := &countingStore{sweeps: make(chan time.Time, 4)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunJanitor(ctx, cs, 5*time.Millisecond, nil)
	}()

	select {
	case <-cs.sweeps:
	case <-time.After(time.Second):
		t.Fatal("janitor never swept")
	}

	cancel()
	<-done
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC)

	got, ok := expiresAt(&storage.ObjectAttrs{Metadata: map[string]string{expiresKey: exp.Format(time.RFC3339)}})
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	got, ok = expiresAt(&storage.ObjectAttrs{CustomTime: exp})
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = expiresAt(&storage.ObjectAttrs{})
	assert.False(t, ok)
}

func TestValidGCSID(t *testing.T) {
	assert.True(t, validGCSID("6f1c1a4e-2b7d-4d6f-9a51-0c7a1f3e9b11.wav"))
	assert.False(t, validGCSID("6f1c1a4e-2b7d-4d6f-9a51-0c7a1f3e9b11"))
	assert.False(t, validGCSID("../secret.wav"))
}
