/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package dictation captures continuous speech into a transcript through a
// pluggable recognition engine.
package dictation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/humaidq/medtimeline/logging"
)

var logger = logging.Logger(logging.SourceDictation)

// DefaultRestartDelay is the pause before an ended engine run is restarted.
const DefaultRestartDelay = 250 * time.Millisecond

// Result is one recognition result. Interim results may be replaced by
// later ones; final results are kept.
type Result struct {
	Text  string
	Final bool
}

// Engine is a speech recognizer. Run sends results until ctx is done, the
// engine decides to end the run (nil error) or it fails.
type Engine interface {
	Run(ctx context.Context, results chan<- Result) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithRestartDelay sets the pause before an ended run is restarted.
func WithRestartDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.restartDelay = d
	}
}

// WithUpdateFunc registers a callback receiving the transcript after every
// result.
func WithUpdateFunc(fn func(transcript string)) Option {
	return func(c *Controller) {
		c.onUpdate = fn
	}
}

// Controller records speech while toggled on. A run that ends while still
// recording is restarted; a failing run stops recording.
type Controller struct {
	engine       Engine
	restartDelay time.Duration
	onUpdate     func(string)

	mu        sync.Mutex
	recording bool
	cancel    context.CancelFunc
	done      chan struct{}
	final     []string
	interim   string
	err       error
}

// New creates a controller. A nil engine makes every start fail with
// ErrUnsupported.
func New(engine Engine, opts ...Option) *Controller {
	c := &Controller{
		engine:       engine,
		restartDelay: DefaultRestartDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Supported reports whether an engine is configured.
func (c *Controller) Supported() bool {
	return c.engine != nil
}

// Recording reports whether capture is running.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.recording
}

// Toggle starts capture when stopped and stops it when recording. It
// reports whether the controller is recording afterwards.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	if c.Recording() {
		c.Stop()
		return false, nil
	}
	if err := c.Start(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Start begins capture. Earlier final results are kept.
func (c *Controller) Start(ctx context.Context) error {
	if c.engine == nil {
		return ErrUnsupported
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		return ErrAlreadyRecording
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.recording = true
	c.cancel = cancel
	c.done = make(chan struct{})
	c.err = nil

	go c.loop(runCtx, c.done)

	logger.Info("Dictation started")

	return nil
}

// Stop ends capture and waits for the engine to return.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Err returns the engine error that stopped the last capture, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Transcript returns the final results followed by the current interim
// text.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transcriptLocked()
}

// Reset discards the transcript.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.final = nil
	c.interim = ""
}

func (c *Controller) transcriptLocked() string {
	parts := append([]string(nil), c.final...)
	if c.interim != "" {
		parts = append(parts, c.interim)
	}
	return strings.Join(parts, " ")
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := c.runOnce(ctx)

		if ctx.Err() != nil {
			c.stopped(nil)
			return
		}
		if err != nil {
			logger.Error("Voice recognition error", "error", err)
			c.stopped(err)
			return
		}

		logger.Debug("Recognition run ended, restarting")

		select {
		case <-ctx.Done():
			c.stopped(nil)
			return
		case <-time.After(c.restartDelay):
		}
	}
}

func (c *Controller) runOnce(ctx context.Context) error {
	results := make(chan Result)
	errc := make(chan error, 1)

	go func() {
		defer close(results)
		errc <- c.engine.Run(ctx, results)
	}()

	for r := range results {
		c.apply(r)
	}

	c.mu.Lock()
	c.interim = ""
	c.mu.Unlock()

	return <-errc
}

func (c *Controller) apply(r Result) {
	text := strings.TrimSpace(r.Text)

	c.mu.Lock()
	if r.Final {
		if text != "" {
			c.final = append(c.final, text)
		}
		c.interim = ""
	} else {
		c.interim = text
	}
	transcript := c.transcriptLocked()
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil {
		fn(transcript)
	}
}

func (c *Controller) stopped(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.recording = false
	c.cancel = nil
	c.err = err

	logger.Info("Dictation stopped")
}
