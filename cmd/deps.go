package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/xolan/hark/internal/config"
	"github.com/xolan/hark/internal/logging"
	"github.com/xolan/hark/internal/service"
)

// Deps holds external dependencies for CLI commands, enabling testability.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Exit   func(code int)

	// Services opens the journal. The returned function releases it.
	Services func() (*service.Services, func(), error)

	// Interrupt returns a context cancelled on Ctrl-C.
	Interrupt func(parent context.Context) (context.Context, context.CancelFunc)
}

// DefaultDeps returns the default production dependencies.
func DefaultDeps() *Deps {
	return &Deps{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Stdin:     os.Stdin,
		Exit:      os.Exit,
		Services:  openServices,
		Interrupt: notifyInterrupt,
	}
}

// deps is the global dependencies instance used by commands.
// In production, this is DefaultDeps(). Tests can replace it.
var deps = DefaultDeps()

// SetDeps sets the global dependencies (for testing).
func SetDeps(d *Deps) {
	deps = d
}

// ResetDeps resets dependencies to defaults (for testing cleanup).
func ResetDeps() {
	deps = DefaultDeps()
}

// openServices loads the config, sets up the log file and wires the journal.
func openServices() (*service.Services, func(), error) {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}

	logPath, err := cfg.LogFilePath()
	if err != nil {
		return nil, nil, err
	}
	log, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, File: logPath})
	if err != nil {
		return nil, nil, err
	}

	services, err := service.NewServices(configPath, cfg, log)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return services, func() {
		if err := services.Close(); err != nil {
			log.WithError(err).Warn("failed to close journal")
		}
		_ = closeLog()
	}, nil
}

func notifyInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
