package stt

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is used when a request does not name a model.
	DefaultModel = "google/gemini-2.5-flash"

	// transcribePrompt tells the model to return a verbatim transcription
	// in the spoken language rather than a translation or summary.
	transcribePrompt = "Transcribe this audio exactly as spoken. " +
		"Output only the transcription, nothing else. " +
		"If the audio is in Portuguese, transcribe in Portuguese. " +
		"If in English, transcribe in English. Preserve the original language."
)

// OpenRouter transcribes audio through OpenRouter's chat completions
// endpoint, sending the WAV payload as an input_audio content part to
// a multimodal model.
type OpenRouter struct {
	baseURL string
	referer string
	title   string
}

// NewOpenRouter creates the OpenRouter provider.
func NewOpenRouter() *OpenRouter {
	return &OpenRouter{
		baseURL: openRouterBaseURL,
		referer: "https://github.com/voicedrop/voicedrop",
		title:   "VoiceDrop",
	}
}

func (p *OpenRouter) Name() string { return "openrouter" }

// Transcribe sends the audio to OpenRouter and returns the model's text.
func (p *OpenRouter) Transcribe(ctx context.Context, req Request) (string, error) {
	if req.APIKey == "" {
		return "", fmt.Errorf("openrouter: api key required")
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(
		option.WithBaseURL(p.baseURL),
		option.WithAPIKey(req.APIKey),
		option.WithHeader("HTTP-Referer", p.referer),
		option.WithHeader("X-Title", p.title),
	)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(transcribePrompt),
				openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
					Data:   req.AudioBase64,
					Format: "wav",
				}),
			}),
		},
	})
	if err != nil {
		return "", err
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openrouter: response contained no choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
