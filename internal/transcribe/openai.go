package transcribe

import (
	"bytes"
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAI transcribes through the audio transcription endpoint. The audio is
// uploaded as a multipart file and the instruction is sent as the prompt.
type OpenAI struct {
	Model   string
	BaseURL string
}

// NewOpenAI creates an OpenAI provider. Empty values select the defaults.
func NewOpenAI(model, baseURL string) *OpenAI {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{Model: model, BaseURL: baseURL}
}

func (o *OpenAI) Name() string {
	return ProviderOpenAI
}

func (o *OpenAI) Transcribe(ctx context.Context, req Request) (Response, error) {
	cfg := openai.DefaultConfig(req.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.Model,
		FilePath: "recording" + extensionFor(req.MimeType),
		Reader:   bytes.NewReader(req.Audio),
		Prompt:   req.Instruction,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Text: resp.Text}, nil
}

// extensionFor maps a mime type to the file extension the endpoint uses to
// detect the container.
func extensionFor(mimeType string) string {
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	switch strings.TrimSpace(base) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/flac":
		return ".flac"
	default:
		return ".webm"
	}
}
