// Package service provides the business logic layer for the hark application.
// It wraps the capture, transcription and storage packages, providing one
// API for both the CLI and the TUI.
package service

import (
	"github.com/xolan/hark/internal/config"
)

// ConfigView is the effective configuration as shown to the user.
type ConfigView struct {
	Path          string
	Exists        bool
	Config        config.Config
	StoragePath   string
	LogPath       string
	APIKeyPresent bool
	APIKeyMasked  string
}
