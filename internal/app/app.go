package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"offerportal/internal/archive"
	"offerportal/internal/config"
	"offerportal/internal/controller"
	"offerportal/internal/lifecycle"
	"offerportal/internal/notify"
	"offerportal/internal/repository"
	"offerportal/internal/router"
	"offerportal/internal/scheduler"
	"offerportal/internal/service"
	"offerportal/internal/storage"
)

type App struct {
	repo       *repository.Repository
	service    *service.Service
	controller *controller.Controller
	sweeper    *scheduler.Sweeper
	sender     notify.Sender
	stopSig    chan os.Signal
	cfg        *config.Config
	log        zerolog.Logger

	Done chan struct{}
}

type option func(*App)

func WithConfig(cfg *config.Config) option {
	return func(app *App) {
		app.cfg = cfg
	}
}

// WithSender overrides the mail transport, used by tests to capture outgoing
// mail instead of speaking SMTP.
func WithSender(sender notify.Sender) option {
	return func(app *App) {
		app.sender = sender
	}
}

func NewApp(opts ...option) (*App, error) {
	var err error

	app := &App{
		stopSig: make(chan os.Signal, 2),
		Done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.cfg == nil {
		cfg, err := config.NewConfig()
		if err != nil {
			return nil, err
		}
		app.cfg = cfg
	}

	app.log = newLogger(app.cfg.LogLevel)

	app.repo, err = repository.NewRepository(nil, &app.cfg.PostgresConfig)
	if err != nil {
		return nil, err
	}

	if app.sender == nil {
		app.sender, err = notify.NewEmailService(app.cfg.SMTPConfig, app.log)
		if err != nil {
			return nil, err
		}
	}
	dispatcher := notify.NewDispatcher(app.sender, app.log)

	lc := lifecycle.NewManager(app.repo, nil, app.log)
	app.sweeper = scheduler.NewSweeper(app.repo, lc, dispatcher, app.cfg.SweepHorizon, nil, app.log)

	files, err := storage.NewFileStore(app.cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	archiver := archive.NewArchiver(app.repo, files, app.cfg.ArchiveDir, app.cfg.ArchiveWindow, nil, app.log)

	app.service = service.NewService(app.repo, lc, app.sweeper, archiver, dispatcher,
		app.cfg.ArchiveWindow, nil, app.log)
	app.controller = controller.NewController(app.service, files)

	return app, nil
}

func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		signal.Notify(app.stopSig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		sig := <-app.stopSig
		app.log.Info().Str("signal", sig.String()).Msg("received signal")
		cancel()
	}()

	if err := app.sweeper.Start(app.cfg.SweepSpec); err != nil {
		app.log.Error().Err(err).Msg("could not start deadline sweep")
	}

	server := http.Server{
		Addr:         app.cfg.ServerAddress,
		Handler:      router.NewRouter(app.controller),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			app.log.Error().Err(err).Msg("http server error")
		}
	}()

	app.log.Info().Str("addr", app.cfg.ServerAddress).Msg("server started, listening for connections")
	<-ctx.Done()

	timeout, tcancel := context.WithTimeout(context.Background(), time.Second*10)
	defer tcancel()
	app.log.Info().Msg("shutting down http server")
	server.Shutdown(timeout)

	app.log.Info().Msg("stopping deadline sweep")
	app.sweeper.Stop()

	app.log.Info().Msg("closing repository")
	if err := app.repo.Close(); err != nil {
		app.log.Error().Err(err).Msg("repository closing error")
	}

	close(app.Done)
	app.log.Info().Msg("exiting app")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
