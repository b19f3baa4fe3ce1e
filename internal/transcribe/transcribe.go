// Package transcribe turns recorded audio into text through a remote provider.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Instruction is sent with every request so that providers return a verbatim
// transcript and an empty string for silence.
const Instruction = "Transcribe this audio exactly as spoken. Do not add commentary. " +
	"If the audio is silent or unintelligible, return an empty string."

// DefaultTimeout bounds a single transcription call.
const DefaultTimeout = 60 * time.Second

// Transcription errors
var (
	// ErrConfiguration indicates the pipeline cannot run, typically a missing credential.
	ErrConfiguration = errors.New("transcription is not configured")

	// ErrTranscription marks every failure of the provider call itself.
	ErrTranscription = errors.New("transcription failed")

	// ErrUnknownProvider indicates a provider name that is not supported.
	ErrUnknownProvider = errors.New("unknown transcription provider")
)

// ErrorKind classifies a transcription failure.
type ErrorKind string

const (
	KindProvider ErrorKind = "provider"
	KindTimeout  ErrorKind = "timeout"
	KindCanceled ErrorKind = "canceled"
)

// Error is a failed provider call. It matches ErrTranscription.
type Error struct {
	Kind     ErrorKind
	Provider string
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription failed (%s, %s): %v", e.Provider, e.Kind, e.Cause)
}

// Unwrap exposes both the ErrTranscription marker and the cause.
func (e *Error) Unwrap() []error {
	return []error{ErrTranscription, e.Cause}
}

// Request is what a provider receives.
type Request struct {
	Audio       []byte
	MimeType    string
	Instruction string
	APIKey      string
}

// Response is what a provider returns. An empty Text is a valid outcome.
type Response struct {
	Text string
}

// Provider performs one transcription request.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Response, error)
}

// Pipeline validates preconditions, bounds the call and normalizes errors.
// It holds no state beyond its configuration.
type Pipeline struct {
	Provider Provider
	APIKey   string
	KeyEnv   string // Name of the credential source, for error messages
	Timeout  time.Duration
	Log      logrus.FieldLogger
}

// Transcribe converts audio to text. It fails with ErrConfiguration when no
// credential is set, without contacting the provider, and with an *Error for
// any provider or transport fault. There is no retry.
func (p *Pipeline) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if p.Provider == nil {
		return "", fmt.Errorf("%w: no provider", ErrConfiguration)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		keyEnv := p.KeyEnv
		if keyEnv == "" {
			keyEnv = "API key"
		}
		return "", fmt.Errorf("%w: %s is not set", ErrConfiguration, keyEnv)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := p.logger().WithFields(logrus.Fields{
		"provider":  p.Provider.Name(),
		"bytes":     len(audio),
		"mime_type": mimeType,
	})
	started := time.Now()

	resp, err := p.Provider.Transcribe(callCtx, Request{
		Audio:       audio,
		MimeType:    mimeType,
		Instruction: Instruction,
		APIKey:      p.APIKey,
	})
	if err != nil {
		kind := KindProvider
		switch {
		case ctx.Err() != nil:
			kind = KindCanceled
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			kind = KindTimeout
		}
		terr := &Error{Kind: kind, Provider: p.Provider.Name(), Cause: err}
		log.WithError(err).WithField("kind", kind).Warn("transcription failed")
		return "", terr
	}

	text := strings.TrimSpace(resp.Text)
	log.WithFields(logrus.Fields{
		"duration": time.Since(started).Round(time.Millisecond),
		"chars":    len(text),
	}).Info("transcription complete")
	return text, nil
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

// Supported providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ProviderConfig selects and tunes a provider.
type ProviderConfig struct {
	Name    string
	Model   string // Provider default when empty
	BaseURL string // Provider default when empty
}

// NewProvider builds the named provider.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg.Model, cfg.BaseURL), nil
	case ProviderGemini:
		return NewGemini(cfg.Model, cfg.BaseURL, nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
	}
}
