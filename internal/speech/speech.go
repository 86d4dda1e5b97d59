// Package speech turns voice-channel audio into utterance text and reply
// text into stored audio clips.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orderagent/internal/audiostore"
)

const DefaultTimeout = 30 * time.Second

var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrSynthesisFailed     = errors.New("synthesis failed")
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (data []byte, contentType string, err error)
}

// FrontEnd bounds every backend call with a timeout and folds all of their
// failures into ErrTranscriptionFailed or ErrSynthesisFailed.
type FrontEnd struct {
	transcriber Transcriber
	synthesizer Synthesizer
	store       audiostore.Store
	timeout     time.Duration
	log         *slog.Logger
}

type Option func(*FrontEnd)

func WithSynthesizer(s Synthesizer, store audiostore.Store) Option {
	return func(f *FrontEnd) {
		f.synthesizer = s
		f.store = store
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *FrontEnd) {
		f.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *FrontEnd) {
		f.log = l
	}
}

func New(tr Transcriber, opts ...Option) *FrontEnd {
	f := &FrontEnd{
		transcriber: tr,
		timeout:     DefaultTimeout,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CanSynthesize reports whether replies get an audio clip.
func (f *FrontEnd) CanSynthesize() bool {
	return f.synthesizer != nil && f.store != nil
}

func (f *FrontEnd) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if f.transcriber == nil {
		return "", fmt.Errorf("%w: no speech-to-text backend", ErrTranscriptionFailed)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrTranscriptionFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	text, err := f.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		f.log.Warn("Transcription failed", "bytes", len(audio), "err", err)
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: no speech recognized", ErrTranscriptionFailed)
	}

	f.log.Debug("Transcribed", "text", text, "took", time.Since(start))
	return text, nil
}

// Synthesize renders text and stores the clip for later retrieval.
func (f *FrontEnd) Synthesize(ctx context.Context, text string) (audiostore.Ref, error) {
	if !f.CanSynthesize() {
		return audiostore.Ref{}, fmt.Errorf("%w: no text-to-speech backend", ErrSynthesisFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	data, ct, err := f.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return audiostore.Ref{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	ref, err := f.store.Put(ctx, data, ct)
	if err != nil {
		return audiostore.Ref{}, fmt.Errorf("%w: store: %v", ErrSynthesisFailed, err)
	}
	return ref, nil
}
