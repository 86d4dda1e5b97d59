// Package notify plays the kiosk's listening cue and spoken replies.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const outputRate = beep.SampleRate(44100)

var ErrUnsupported = errors.New("notify: unsupported audio type")

// Player owns the speaker. Playback is serialized.
type Player struct {
	mu  sync.Mutex
	cue []byte
}

// NewPlayer initializes the speaker. cuePath may be empty for a silent cue.
func NewPlayer(cuePath string) (*Player, error) {
	p := &Player{}
	if cuePath != "" {
		data, err := os.ReadFile(cuePath)
		if err != nil {
			return nil, fmt.Errorf("read cue: %w", err)
		}
		p.cue = data
	}

	if err := speaker.Init(outputRate, outputRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return p, nil
}

// Cue plays the listening cue.
func (p *Player) Cue(ctx context.Context) error {
	if len(p.cue) == 0 {
		return nil
	}
	return p.Play(ctx, p.cue, "audio/mpeg")
}

// Play blocks until data has been played or ctx ends.
func (p *Player) Play(ctx context.Context, data []byte, contentType string) error {
	streamer, format, err := decode(data, contentType)
	if err != nil {
		return err
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	var s beep.Streamer = streamer
	if format.SampleRate != outputRate {
		s = beep.Resample(4, format.SampleRate, outputRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func decode(data []byte, contentType string) (beep.StreamSeekCloser, beep.Format, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return wav.Decode(bytes.NewReader(data))
	case "audio/mpeg", "audio/mp3":
		return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupported, contentType)
	}
}
