package service

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/capture"
	"github.com/xolan/hark/internal/capture/execdevice"
	"github.com/xolan/hark/internal/config"
	"github.com/xolan/hark/internal/storage"
	"github.com/xolan/hark/internal/transcribe"
)

// Services holds all service instances used by the application
type Services struct {
	Journal *Journal
	Config  *ConfigService
}

// NewServices opens the configured store and wires the recorder and the
// transcription pipeline from cfg.
func NewServices(configPath string, cfg config.Config, log logrus.FieldLogger) (*Services, error) {
	storagePath, err := cfg.StoragePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	store, err := storage.Open(cfg.Storage.Backend, storagePath, log)
	if err != nil {
		return nil, err
	}

	device := execdevice.New(execdevice.Config{
		Command:   cfg.Capture.Command,
		InputArgs: cfg.Capture.InputArgs,
	}, log)
	recorder := capture.NewRecorder(device,
		capture.WithLogger(log),
		capture.WithPreferredMimeTypes(cfg.Capture.PreferredMimeTypes),
	)

	pipeline, err := NewPipeline(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return NewServicesWith(configPath, cfg, store, recorder, pipeline, log), nil
}

// NewServicesWith creates a Services instance from already built collaborators (useful for testing)
func NewServicesWith(configPath string, cfg config.Config, store storage.Store, recorder *capture.Recorder, transcriber Transcriber, log logrus.FieldLogger) *Services {
	journal := NewJournal(store, recorder, transcriber,
		WithLocation(cfg.Location()),
		WithLogger(log),
	)
	return &Services{
		Journal: journal,
		Config:  NewConfigService(configPath, cfg),
	}
}

// NewPipeline builds the transcription pipeline described by cfg. The
// credential is resolved now; a missing one surfaces on the first call.
func NewPipeline(cfg config.Config, log logrus.FieldLogger) (*transcribe.Pipeline, error) {
	provider, err := transcribe.NewProvider(transcribe.ProviderConfig{
		Name:    cfg.Transcription.Provider,
		Model:   cfg.Transcription.Model,
		BaseURL: cfg.Transcription.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return &transcribe.Pipeline{
		Provider: provider,
		APIKey:   cfg.APIKey(config.DotEnvPaths()...),
		KeyEnv:   cfg.Transcription.APIKeyEnv,
		Timeout:  cfg.Transcription.Timeout,
		Log:      log,
	}, nil
}

// Close releases the journal.
func (s *Services) Close() error {
	return s.Journal.Close()
}
