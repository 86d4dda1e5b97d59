package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// Client calls a running agent server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

func (c *Client) Text(ctx context.Context, text string, table int) (TurnResponse, error) {
	body, err := json.Marshal(TextRequest{Text: text, Table: table})
	if err != nil {
		return TurnResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/agent/text", bytes.NewReader(body))
	if err != nil {
		return TurnResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) Voice(ctx context.Context, audio []byte, filename string, table int) (TurnResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if table > 0 {
		if err := mw.WriteField("table", strconv.Itoa(table)); err != nil {
			return TurnResponse{}, err
		}
	}
	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return TurnResponse{}, err
	}
	if _, err := fw.Write(audio); err != nil {
		return TurnResponse{}, err
	}
	if err := mw.Close(); err != nil {
		return TurnResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/agent/voice", &buf)
	if err != nil {
		return TurnResponse{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

// Audio downloads a reply clip by the audio_ref a turn returned.
func (c *Client) Audio(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+ref, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("get %s: %s", ref, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	return data, resp.Header.Get("Content-Type"), err
}

// do decodes a turn reply. A 503 still carries a reply worth showing, so
// it is returned alongside the error.
func (c *Client) do(req *http.Request) (TurnResponse, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return TurnResponse{}, err
	}
	defer resp.Body.Close()

	var out TurnResponse
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusServiceUnavailable {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return TurnResponse{}, fmt.Errorf("decode reply: %w", err)
		}
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	return out, nil
}
