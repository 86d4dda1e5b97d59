package speech

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go/v3"
)

// OpenAITranscriber sends the clip to the hosted transcription API.
type OpenAITranscriber struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

func NewOpenAITranscriber(client openai.Client, language string) *OpenAITranscriber {
	return &OpenAITranscriber{client: client, model: openai.AudioModelWhisper1, language: language}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, http.DetectContentType(audio)),
		Model: t.model,
	}
	if t.language != "" {
		params.Language = openai.String(t.language)
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return res.Text, nil
}
