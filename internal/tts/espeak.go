// Package tts renders reply text to speech with espeak-ng.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const ContentType = "audio/wav"

type Espeak struct {
	Bin   string // espeak-ng executable
	Voice string // e.g. "en", "en-us", "ur"
	Speed int    // words per minute, 0 = espeak default
}

func NewEspeak(voice string) *Espeak {
	if voice == "" {
		voice = "en"
	}
	return &Espeak{Bin: "espeak-ng", Voice: voice}
}

// Synthesize returns a WAV clip of text.
func (e *Espeak) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", errors.New("empty text")
	}

	args := []string{"--stdout", "-v", e.Voice}
	if e.Speed > 0 {
		args = append(args, "-s", strconv.Itoa(e.Speed))
	}
	args = append(args, "--", text)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("%s: %w: %s", e.Bin, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, "", fmt.Errorf("%s produced no audio", e.Bin)
	}

	return stdout.Bytes(), ContentType, nil
}
