// Package app initializes and runs the application service. It wires
// configuration, logging, the in-memory registries, the visit recorder,
// and the HTTP router, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ArcaneCipher/tinyapp/internal/auth"
	"github.com/ArcaneCipher/tinyapp/internal/config"
	"github.com/ArcaneCipher/tinyapp/internal/ipchecker"
	"github.com/ArcaneCipher/tinyapp/internal/keygen"
	"github.com/ArcaneCipher/tinyapp/internal/logger"
	"github.com/ArcaneCipher/tinyapp/internal/router"
	"github.com/ArcaneCipher/tinyapp/internal/service"
	"github.com/ArcaneCipher/tinyapp/internal/urlstore"
	"github.com/ArcaneCipher/tinyapp/internal/userdir"
	"github.com/ArcaneCipher/tinyapp/internal/validurl"
	"github.com/ArcaneCipher/tinyapp/internal/visitrecorder"
)

// App bundles everything needed to serve requests: configuration, the
// HTTP handler, and the background visit recorder.
type App struct {
	cfg               *config.Config
	httpHandler       http.Handler
	stopVisitRecorder context.CancelFunc
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing the logger
// - building the in-memory user directory and URL store
// - starting the background visit recorder
// - assembling the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	signingSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.SessionSigningSecretKey)
	if err != nil {
		return nil, err
	}

	keys := keygen.New(app.cfg.ShortKeyLength, app.cfg.KeygenMaxRetries)
	directory := userdir.New(keys, app.cfg.BcryptCost)
	store := urlstore.New(keys, validurl.New(app.cfg.AllowedSchemes))

	recorder := visitrecorder.New(
		store,
		app.cfg.VisitQueueCapacity,
		app.cfg.VisitFlushInterval,
	)
	recorderRunCtx, stopVisitRecorder := context.WithCancel(context.Background())
	app.stopVisitRecorder = stopVisitRecorder

	recorder.Run(recorderRunCtx)
	recorder.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `recorder.ListenErrors()`:", zap.Error(err))
	})

	gate := auth.New(
		directory,
		app.cfg.SessionCookieName,
		app.cfg.VisitorCookieName,
		signingSecretKey,
		app.cfg.SessionTTL,
	)

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.New(directory, store, recorder, app.cfg.ShortURLBase),
		gate,
		checker,
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support. It listens
// for system signals, flushes the visit recorder, and stops the server.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Flushing visit recorder and exiting...")
		a.stopVisitRecorder()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
