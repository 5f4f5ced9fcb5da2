package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Whisper uploads captures to a self-hosted whisper-server speaking the
// OpenAI transcription API (multipart file upload, JSON response).
type Whisper struct {
	url  string
	http *http.Client
}

// NewWhisper creates the whisper provider pointed at the given server
// endpoint, e.g. "http://localhost:8080/v1/audio/transcriptions".
func NewWhisper(url string) *Whisper {
	return &Whisper{
		url:  url,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (w *Whisper) Name() string { return "whisper" }

// Transcribe uploads the WAV payload and returns the server's text.
func (w *Whisper) Transcribe(ctx context.Context, req Request) (string, error) {
	if w.url == "" {
		return "", fmt.Errorf("whisper: server url not configured")
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		return "", fmt.Errorf("decode audio payload: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}

	if req.Model != "" {
		if err := writer.WriteField("model", req.Model); err != nil {
			return "", fmt.Errorf("write model field: %w", err)
		}
	}

	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("write response_format field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := w.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper server error %d: %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	return strings.TrimSpace(apiResp.Text), nil
}
