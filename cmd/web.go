/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/urfave/cli/v3"

	"github.com/humaidq/medtimeline/backend"
	"github.com/humaidq/medtimeline/db"
	"github.com/humaidq/medtimeline/logging"
	"github.com/humaidq/medtimeline/routes"
	"github.com/humaidq/medtimeline/static"
	"github.com/humaidq/medtimeline/templates"
	"github.com/humaidq/medtimeline/timeline"
	"github.com/humaidq/medtimeline/uistate"
)

const runtimeEnvVar = "APP_ENV"

type runtimeEnv string

const (
	runtimeDevelopment runtimeEnv = "development"
	runtimeProduction  runtimeEnv = "production"
)

var CmdStart = &cli.Command{
	Name:    "start",
	Aliases: []string{"run"},
	Usage:   "Start the web server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Value:   "8080",
			Sources: cli.EnvVars("PORT"),
			Usage:   "the web server port",
		},
		&cli.StringFlag{
			Name:    "backend-url",
			Sources: cli.EnvVars("BACKEND_URL"),
			Usage:   "base URL of the health record API (e.g., http://localhost:8000)",
		},
		&cli.StringFlag{
			Name:    "database-url",
			Sources: cli.EnvVars("DATABASE_URL"),
			Usage:   "PostgreSQL connection string for sessions; in-memory sessions when empty",
		},
		&cli.StringFlag{
			Name:    "csrf-secret",
			Sources: cli.EnvVars("CSRF_SECRET"),
			Usage:   "secret used to sign CSRF tokens",
		},
		&cli.StringFlag{
			Name:    "env",
			Value:   string(runtimeDevelopment),
			Sources: cli.EnvVars(runtimeEnvVar),
			Usage:   "runtime environment (development or production)",
		},
		&cli.StringFlag{
			Name:    "timezone",
			Value:   "Local",
			Sources: cli.EnvVars("DISPLAY_TIMEZONE"),
			Usage:   "IANA time zone used to display timestamps",
		},
		&cli.StringFlag{
			Name:    "public-url",
			Sources: cli.EnvVars("PUBLIC_URL"),
			Usage:   "external origin used in share links (defaults to the request host)",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Usage:   "minimum log level (debug, info, warn, error)",
		},
	},
	Action: start,
}

func parseRuntimeEnv(value string) (runtimeEnv, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "development", "dev":
		return runtimeDevelopment, nil
	case "production", "prod", "":
		return runtimeProduction, nil
	default:
		return "", errInvalidRuntimeEnv
	}
}

func csrfSecret(env runtimeEnv, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	if env == runtimeProduction {
		return "", errCSRFSecretRequired
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf secret: %w", err)
	}

	appLogger.Warn("Using an ephemeral CSRF secret for development")

	return hex.EncodeToString(buf), nil
}

var dataImageURLPattern = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif|webp);base64,[A-Za-z0-9+/=]+$`)

// safeImageURL marks an image source as safe for templates, returning an
// empty URL for anything that is not a raster data URL, http(s) URL or
// same-origin path.
func safeImageURL(raw *string) htmltemplate.URL {
	if raw == nil {
		return ""
	}

	value := strings.TrimSpace(*raw)

	switch {
	case dataImageURLPattern.MatchString(value):
		return htmltemplate.URL(value) // #nosec G203 -- validated raster data URL
	case strings.HasPrefix(value, "https://"), strings.HasPrefix(value, "http://"):
		return htmltemplate.URL(value) // #nosec G203 -- absolute http(s) URL
	case strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//"):
		return htmltemplate.URL(value) // #nosec G203 -- same-origin path
	default:
		return ""
	}
}

func configureEmptyNotFoundHandler(f *flamego.Flame) {
	f.NotFound(func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNotFound)
	})
}

func sessionOptions(ctx context.Context, databaseURL string, env runtimeEnv) (session.Options, func(), error) {
	opts := session.Options{
		Cookie: session.CookieOptions{
			Name:     "medtimeline_session",
			Secure:   env == runtimeProduction,
			SameSite: http.SameSiteLaxMode,
		},
	}

	if databaseURL == "" {
		appLogger.Info("No database configured, keeping sessions in memory")
		return opts, func() {}, nil
	}

	appLogger.Info("Connecting to database")

	if err := db.Init(ctx, databaseURL); err != nil {
		return opts, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Syncing database schema")

	if err := db.SyncSchema(ctx, databaseURL); err != nil {
		db.Close()
		return opts, nil, fmt.Errorf("failed to sync schema: %w", err)
	}

	opts.Initer = db.PostgresSessionIniter()
	opts.Config = db.PostgresSessionConfig{Lifetime: db.DefaultSessionLifetime}

	return opts, db.Close, nil
}

type appConfig struct {
	controller *timeline.Controller
	session    session.Options
	csrfSecret string
	publicURL  string
}

func newApp(cfg appConfig) (*flamego.Flame, error) {
	f := flamego.New()
	f.Use(flamego.Recovery())
	f.Use(session.Sessioner(cfg.session))
	f.Use(routes.RequestLogger)
	f.Use(csrf.Csrfer(csrf.Options{Secret: cfg.csrfSecret}))

	fs, err := template.EmbedFS(templates.Templates, ".", []string{".html"})
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	f.Use(template.Templater(template.Options{
		FileSystem: fs,
		FuncMaps: []htmltemplate.FuncMap{{
			"safeImageURL": safeImageURL,
		}},
	}))
	f.Use(routes.NoCacheHeaders())
	f.Use(flamego.Static(flamego.StaticOptions{
		FileSystem: http.FS(static.Static),
	}))
	f.Use(routes.CSRFInjector())
	f.Use(routes.FlashInjector())
	f.Use(routes.ThemeInjector())
	f.Use(routes.SiteTitleInjector())
	f.Use(routes.UserContextInjector())

	f.Map(cfg.controller)
	f.Map(routes.Config{PublicURL: cfg.publicURL})

	f.Get("/", routes.Home)
	f.Get("/share", routes.Share)
	f.Get("/patient/{id}", routes.PatientTimeline)

	f.Group("", func() {
		f.Post("/theme", routes.ToggleTheme)
		f.Post("/login", routes.Login)
		f.Post("/register", routes.Register)
		f.Post("/logout", routes.Logout)
		f.Post("/ingest", routes.Ingest)
		f.Post("/document/select", routes.SelectDocument)
		f.Post("/document/upload", routes.UploadDocument)
		f.Post("/summary", routes.Summary)
		f.Post("/analyze", routes.Analyze)
		f.Post("/export", routes.Export)
	}, csrf.Validate)

	configureEmptyNotFoundHandler(f)

	return f, nil
}

func start(ctx context.Context, cmd *cli.Command) (err error) {
	if err := logging.SetLevel(cmd.String("log-level")); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	env, err := parseRuntimeEnv(cmd.String("env"))
	if err != nil {
		return err
	}

	backendURL := cmd.String("backend-url")
	if backendURL == "" {
		return errBackendURLRequired
	}

	loc, err := time.LoadLocation(cmd.String("timezone"))
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	secret, err := csrfSecret(env, cmd.String("csrf-secret"))
	if err != nil {
		return err
	}

	client, err := backend.New(backendURL)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	ctrl, err := timeline.NewController(client, uistate.NewRegistry(), loc)
	if err != nil {
		return err
	}

	sessOpts, closeDB, err := sessionOptions(ctx, cmd.String("database-url"), env)
	if err != nil {
		return err
	}
	defer closeDB()

	f, err := newApp(appConfig{
		controller: ctrl,
		session:    sessOpts,
		csrfSecret: secret,
		publicURL:  cmd.String("public-url"),
	})
	if err != nil {
		return err
	}

	port := cmd.String("port")

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", port),
		Handler:           f,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          requestStdLogger,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	appLogger.Info("Starting web server", "port", port, "backend", client.BaseURL(), "env", env)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}

	appLogger.Info("Web server stopped")

	return nil
}
