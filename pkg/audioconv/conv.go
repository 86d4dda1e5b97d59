// Package audioconv decodes uploaded audio into 16 kHz mono float PCM, the
// input format whisper expects, and encodes PCM back to WAV.
package audioconv

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int
}

type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatOgg Format = "ogg"
)

// Sniff guesses the container from magic bytes, falling back to the file
// name extension.
func Sniff(data []byte, name string) (Format, error) {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return FormatWAV, nil
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOgg, nil
	case bytes.HasPrefix(data, []byte("ID3")), len(data) > 1 && data[0] == 0xff && data[1]&0xe0 == 0xe0:
		return FormatMP3, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	case ".ogg", ".oga", ".opus":
		return FormatOgg, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// Decode converts an encoded clip to 16 kHz mono. Ogg is tried as Vorbis
// first, then Opus.
func Decode(data []byte, name string, opt Options) ([]float32, error) {
	f, err := Sniff(data, name)
	if err != nil {
		return nil, err
	}

	var pcm []float32
	switch f {
	case FormatWAV:
		pcm, err = decodeWAV(bytes.NewReader(data))
	case FormatMP3:
		pcm, err = decodeMP3(bytes.NewReader(data))
	case FormatOgg:
		pcm, err = decodeVorbis(bytes.NewReader(data))
		if err != nil {
			var opusErr error
			if pcm, opusErr = decodeOpus(bytes.NewReader(data)); opusErr != nil {
				err = fmt.Errorf("ogg: vorbis: %v, opus: %w", err, opusErr)
			} else {
				err = nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}

	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

func DecodeFile(_ context.Context, path string, opt Options) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, path, opt)
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	ch, rate := 1, 44100
	if pb.Format != nil {
		ch = max(pb.Format.NumChannels, 1)
		if pb.Format.SampleRate > 0 {
			rate = pb.Format.SampleRate
		}
	}

	return toMono16k(intsToFloat(pb.Data, depth), ch, rate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, samples); err != nil {
		return nil, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always yields interleaved stereo
	return toMono16k(int16ToFloat(samples), 2, rate), nil
}

func decodeVorbis(r io.Reader) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid vorbis stream")
	}
	return toMono16k(pcm, format.Channels, format.SampleRate), nil
}

func decodeOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	var pcm []float32
	buf := make([]int16, 24000*ch)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16ToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("empty opus stream")
	}

	// opus always decodes at 48 kHz
	return toMono16k(pcm, ch, 48000), nil
}
