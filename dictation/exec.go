/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package dictation

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
)

// interimPrefix marks a recognizer output line as an interim result.
const interimPrefix = "~"

// ExecEngine runs an external recognizer command. Every output line is a
// final result, except lines starting with "~" which are interim.
type ExecEngine struct {
	Command string
	Args    []string
}

// NewExecEngine returns an engine for command, or nil when command is empty.
func NewExecEngine(command string, args ...string) Engine {
	if strings.TrimSpace(command) == "" {
		return nil
	}
	return &ExecEngine{Command: command, Args: args}
}

// Run starts the command and streams its output until it exits.
func (e *ExecEngine) Run(ctx context.Context, results chan<- Result) error {
	if e.Command == "" {
		return ErrCommandRequired
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r := Result{Text: line, Final: true}
		if rest, ok := strings.CutPrefix(line, interimPrefix); ok {
			r = Result{Text: strings.TrimSpace(rest)}
		}

		select {
		case results <- r:
		case <-ctx.Done():
			_ = cmd.Wait()
			return ctx.Err()
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	return scanner.Err()
}
