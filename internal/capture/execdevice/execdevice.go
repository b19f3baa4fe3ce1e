// Package execdevice records audio by running an external recorder such as
// ffmpeg and reading the encoded stream from its stdout.
package execdevice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xolan/hark/internal/capture"
)

const chunkSize = 32 * 1024

// DefaultStartupWindow is how long Start waits for the recorder to either
// produce audio or fail.
const DefaultStartupWindow = 500 * time.Millisecond

// Format maps a mime type to the recorder arguments that produce it.
type Format struct {
	MimeType string
	Args     []string
}

// DefaultFormats are the encodings ffmpeg can write to a pipe, best first.
var DefaultFormats = []Format{
	{MimeType: "audio/webm;codecs=opus", Args: []string{"-c:a", "libopus", "-f", "webm"}},
	{MimeType: "audio/ogg;codecs=opus", Args: []string{"-c:a", "libopus", "-f", "ogg"}},
	{MimeType: "audio/mpeg", Args: []string{"-c:a", "libmp3lame", "-f", "mp3"}},
}

// DefaultInputArgs capture from the default PulseAudio source.
var DefaultInputArgs = []string{"-hide_banner", "-loglevel", "error", "-f", "pulse", "-i", "default"}

// Config describes how to launch the recorder.
type Config struct {
	Command    string   // Executable name or path (default "ffmpeg")
	InputArgs  []string // Arguments selecting the input device
	Formats    []Format // Supported output encodings; the first is the default
	OutputArgs []string // Trailing arguments naming the output (default "pipe:1")

	// StartupWindow bounds the wait for first output in Start. A recorder
	// still running silently after it is treated as recording.
	StartupWindow time.Duration
}

// Device launches one recorder process per stream.
type Device struct {
	cfg Config
	log logrus.FieldLogger
}

// New creates a Device, filling unset fields with defaults.
func New(cfg Config, log logrus.FieldLogger) *Device {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputArgs == nil {
		cfg.InputArgs = DefaultInputArgs
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = DefaultFormats
	}
	if cfg.OutputArgs == nil {
		cfg.OutputArgs = []string{"pipe:1"}
	}
	if cfg.StartupWindow <= 0 {
		cfg.StartupWindow = DefaultStartupWindow
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Device{cfg: cfg, log: log}
}

// Open checks that the recorder is installed. The process itself is started
// by Stream.Start once an encoding has been chosen.
func (d *Device) Open(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := exec.LookPath(d.cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("recorder %q: %w", d.cfg.Command, err)
	}
	return &Stream{cfg: d.cfg, path: path, log: d.log}, nil
}

// Stream is a single recorder process.
type Stream struct {
	cfg  Config
	path string
	log  logrus.FieldLogger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stderr  bytes.Buffer
	flushed bool
	closed  bool
	waitErr error
	quit    chan struct{}
	exited  chan struct{}
	audible chan struct{}
}

// IsTypeSupported reports whether a format is configured for mimeType.
func (s *Stream) IsTypeSupported(mimeType string) bool {
	_, ok := s.format(mimeType)
	return ok
}

// DefaultMimeType is the first configured format.
func (s *Stream) DefaultMimeType() string {
	return s.cfg.Formats[0].MimeType
}

func (s *Stream) format(mimeType string) (Format, bool) {
	for _, f := range s.cfg.Formats {
		if strings.EqualFold(f.MimeType, mimeType) {
			return f, true
		}
	}
	return Format{}, false
}

// Start launches the recorder writing mimeType to stdout. It returns once the
// recorder has produced its first output or has stayed up for the startup
// window. A recorder that exits before either, for example because the input
// device is missing, is reported as a Start error.
func (s *Stream) Start(mimeType string) (<-chan capture.Chunk, error) {
	f, ok := s.format(mimeType)
	if !ok {
		return nil, fmt.Errorf("unsupported mime type %q", mimeType)
	}

	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return nil, errors.New("recorder already started")
	}
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("stream closed")
	}

	args := make([]string, 0, len(s.cfg.InputArgs)+len(f.Args)+len(s.cfg.OutputArgs))
	args = append(args, s.cfg.InputArgs...)
	args = append(args, f.Args...)
	args = append(args, s.cfg.OutputArgs...)

	cmd := exec.Command(s.path, args...)
	cmd.Stderr = &s.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.cmd = cmd
	s.quit = make(chan struct{})
	s.exited = make(chan struct{})
	s.audible = make(chan struct{})
	exited, audible := s.exited, s.audible
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"command": s.path, "pid": cmd.Process.Pid}).Debug("recorder started")

	ch := make(chan capture.Chunk, 8)
	go s.read(stdout, ch)

	timer := time.NewTimer(s.cfg.StartupWindow)
	defer timer.Stop()
	select {
	case <-audible:
	case <-timer.C:
	case <-exited:
		// Output may have raced the exit.
		select {
		case <-audible:
			return ch, nil
		default:
		}
		s.mu.Lock()
		err := s.waitErr
		stderr := strings.TrimSpace(s.stderr.String())
		s.mu.Unlock()
		if err == nil {
			err = errors.New("recorder exited before producing audio")
		}
		if stderr != "" {
			err = fmt.Errorf("%w: %s", err, stderr)
		}
		return nil, fmt.Errorf("recorder exited: %w", err)
	}
	return ch, nil
}

// read forwards stdout to ch until the process exits.
func (s *Stream) read(stdout io.Reader, ch chan<- capture.Chunk) {
	defer close(ch)

	buf := make([]byte, chunkSize)
	heard := false
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if !heard {
				heard = true
				close(s.audible)
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			if !s.send(ch, capture.Chunk{Data: data}) {
				// Nobody is listening any more; drain so the process can exit.
				_, _ = io.Copy(io.Discard, stdout)
				break
			}
		}
		if err != nil {
			break
		}
	}

	waitErr := s.cmd.Wait()

	s.mu.Lock()
	s.waitErr = waitErr
	flushed, closed := s.flushed, s.closed
	stderr := strings.TrimSpace(s.stderr.String())
	s.mu.Unlock()
	close(s.exited)

	// An interrupted recorder exits non-zero; that is the normal stop path.
	if waitErr != nil && !flushed && !closed {
		if stderr != "" {
			waitErr = fmt.Errorf("%w: %s", waitErr, stderr)
		}
		s.send(ch, capture.Chunk{Err: fmt.Errorf("recorder exited: %w", waitErr)})
	}
}

func (s *Stream) send(ch chan<- capture.Chunk, c capture.Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-s.quit:
		return false
	}
}

// Flush interrupts the recorder so it finalizes the container and exits.
func (s *Stream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return errors.New("recorder not started")
	}
	s.flushed = true
	return s.cmd.Process.Signal(os.Interrupt)
}

// Close kills the recorder if it is still running and waits for it to exit.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd, exited := s.cmd, s.exited
	if s.quit != nil {
		close(s.quit)
	}
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	select {
	case <-exited:
		return nil
	default:
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-exited
	return nil
}
