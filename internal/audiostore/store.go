// Package audiostore keeps generated reply audio for a limited time. Every
// stored clip has an expiry; expired clips are invisible to Open and are
// deleted by Sweep.
package audiostore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

const DefaultTTL = 15 * time.Minute

var ErrNotFound = errors.New("audio not found")

// Ref addresses a stored clip. ID is safe to put in a URL path.
type Ref struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Object struct {
	io.ReadCloser
	Ref
}

type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (Ref, error)
	Open(ctx context.Context, id string) (*Object, error)
	// Sweep deletes every clip expired at now and reports how many went.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// RunJanitor sweeps s every interval until ctx is done.
func RunJanitor(ctx context.Context, s Store, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultTTL / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Sweep(ctx, now)
			if err != nil {
				logger.Warn("Audio sweep failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("Swept expired audio", "removed", n)
			}
		}
	}
}

var extensions = map[string]string{
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/mpeg":  ".mp3",
	"audio/ogg":   ".ogg",
}

func extension(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	return ".bin"
}

func contentTypeOf(ext string) string {
	for ct, e := range extensions {
		if e == ext && ct != "audio/x-wav" {
			return ct
		}
	}
	return "application/octet-stream"
}
