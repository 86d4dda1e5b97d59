// Package audio captures utterances from the kiosk microphone.
package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const SampleRate = 16000

var ErrNoSpeech = errors.New("no speech recorded")

// VAD tunes utterance endpointing.
type VAD struct {
	FrameSize int           // samples per read, 320 is 20ms
	Threshold float64       // frame RMS above which a frame is speech
	Trailing  time.Duration // silence that ends an utterance
	MaxLength time.Duration
}

var DefaultVAD = VAD{
	FrameSize: 320,
	Threshold: 0.015,
	Trailing:  600 * time.Millisecond,
	MaxLength: 10 * time.Second,
}

type Recorder struct {
	vad VAD
}

func NewRecorder(vad VAD) *Recorder {
	if vad.FrameSize <= 0 {
		vad.FrameSize = DefaultVAD.FrameSize
	}
	if vad.Threshold <= 0 {
		vad.Threshold = DefaultVAD.Threshold
	}
	if vad.Trailing <= 0 {
		vad.Trailing = DefaultVAD.Trailing
	}
	if vad.MaxLength <= 0 {
		vad.MaxLength = DefaultVAD.MaxLength
	}
	return &Recorder{vad: vad}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto records one utterance at SampleRate: it waits for speech and
// stops after trailing silence, MaxLength or ctx.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	buf := make([]float32, r.vad.FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	seg := newSegmenter(r.vad)
	for !seg.done() {
		if ctx.Err() != nil {
			break
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		seg.push(buf)
	}

	if len(seg.out) == 0 {
		return nil, ErrNoSpeech
	}
	return seg.out, nil
}

// segmenter keeps frames from the first speech frame until Trailing of
// silence follows it.
type segmenter struct {
	vad       VAD
	out       []float32
	speaking  bool
	silent    int
	frames    int
	maxFrames int
	endFrames int
}

func newSegmenter(v VAD) *segmenter {
	frameDur := time.Duration(v.FrameSize) * time.Second / SampleRate
	return &segmenter{
		vad:       v,
		out:       make([]float32, 0, SampleRate*3),
		maxFrames: int(v.MaxLength / frameDur),
		endFrames: int(math.Ceil(float64(v.Trailing) / float64(frameDur))),
	}
}

func (s *segmenter) push(frame []float32) {
	s.frames++

	if frameRMS(frame) > s.vad.Threshold {
		s.speaking = true
		s.silent = 0
		s.out = append(s.out, frame...)
		return
	}
	if s.speaking {
		s.silent++
		s.out = append(s.out, frame...)
	}
}

func (s *segmenter) done() bool {
	return s.frames >= s.maxFrames || (s.speaking && s.silent >= s.endFrames)
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
