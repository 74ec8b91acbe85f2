/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/humaidq/medtimeline/backend"
	"github.com/humaidq/medtimeline/dictation"
)

var CmdDictate = &cli.Command{
	Name:      "dictate",
	Usage:     "Dictate a health event and ingest it",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "backend-url",
			Sources: cli.EnvVars("BACKEND_URL"),
			Usage:   "base URL of the health record API",
		},
		&cli.StringFlag{
			Name:    "email",
			Sources: cli.EnvVars("MEDTIMELINE_EMAIL"),
			Usage:   "account email used to sign in before ingesting",
		},
		&cli.StringFlag{
			Name:    "password",
			Sources: cli.EnvVars("MEDTIMELINE_PASSWORD"),
			Usage:   "account password used to sign in before ingesting",
		},
		&cli.StringFlag{
			Name:  "patient-id",
			Usage: "patient the event belongs to (defaults to the signed-in patient)",
		},
		&cli.StringFlag{
			Name:  "patient-name",
			Usage: "patient display name",
		},
		&cli.StringFlag{
			Name:  "doctor-name",
			Usage: "doctor display name",
		},
		&cli.StringFlag{
			Name:  "event-type",
			Value: "note",
			Usage: "event type recorded with the dictation",
		},
		&cli.StringFlag{
			Name:    "recognizer",
			Sources: cli.EnvVars("DICTATION_RECOGNIZER"),
			Usage:   "speech recognizer command writing one phrase per line (interim lines start with ~)",
		},
		&cli.StringSliceFlag{
			Name:  "recognizer-arg",
			Usage: "argument passed to the recognizer command (repeatable)",
		},
	},
	Action: dictate,
}

func dictate(ctx context.Context, cmd *cli.Command) error {
	backendURL := cmd.String("backend-url")
	if backendURL == "" {
		return errBackendURLRequired
	}

	client, err := backend.New(backendURL)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	engine := dictation.NewExecEngine(cmd.String("recognizer"), cmd.StringSlice("recognizer-arg")...)
	rec := dictation.New(engine, dictation.WithUpdateFunc(func(transcript string) {
		fmt.Fprintf(os.Stderr, "\r\033[K%s", transcript)
	}))

	if !rec.Supported() {
		return dictation.ErrUnsupported
	}

	transcript, err := record(ctx, rec)
	if err != nil {
		return err
	}

	ctx, acctPatientID, err := signInForDictation(ctx, client, cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}

	patientID := cmd.String("patient-id")
	if patientID == "" {
		patientID = acctPatientID
	}
	if patientID == "" {
		return errPatientIDRequired
	}

	res, err := client.Ingest(ctx, backend.EventDraft{
		PatientID:   patientID,
		PatientName: cmd.String("patient-name"),
		DoctorName:  cmd.String("doctor-name"),
		EventType:   cmd.String("event-type"),
		Content:     transcript,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest dictation: %w", err)
	}

	dictationLogger.Info("Dictation ingested", "patient_id", patientID, "event_id", res.EventID)

	return nil
}

// record runs the recognizer until interrupted or until it fails, and
// returns the transcript.
func record(ctx context.Context, rec *dictation.Controller) (string, error) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rec.Start(sigCtx); err != nil {
		return "", err
	}

	dictationLogger.Info("Recording, press Ctrl+C to finish")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-sigCtx.Done():
			break wait
		case <-ticker.C:
			if !rec.Recording() {
				break wait
			}
		}
	}

	rec.Stop()
	fmt.Fprintln(os.Stderr)

	if err := rec.Err(); err != nil {
		return "", fmt.Errorf("recognizer failed: %w", err)
	}

	transcript := rec.Transcript()
	if transcript == "" {
		return "", errEmptyTranscript
	}

	return transcript, nil
}

func signInForDictation(ctx context.Context, client *backend.Client, email, password string) (context.Context, string, error) {
	if email == "" {
		return ctx, "", nil
	}

	acct, err := client.Login(ctx, backend.Credentials{Email: email, Password: password})
	if err != nil {
		return ctx, "", fmt.Errorf("failed to sign in: %w", err)
	}

	return backend.WithCookies(ctx, acct.Cookies), acct.PatientID, nil
}
