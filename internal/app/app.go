package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"andretools/internal/config"
	"andretools/internal/converter"
	"andretools/internal/engine"
	"andretools/internal/excalidraw"
	"andretools/internal/store"
	"andretools/internal/tasks"
	"andretools/internal/worker"
)

type App struct {
	Config *config.Config

	Jobs          *store.JobStore
	Engine        engine.Engine
	EngineOptions engine.Options
	Runner        *worker.Runner
	Converter     *converter.Converter
	Excalidraw    *excalidraw.Launcher
	Janitor       *tasks.Janitor

	opener excalidraw.Opener
}

// Option overrides a collaborator before the rest of the app is wired.
type Option func(*App)

// WithEngine replaces the configured recognition engine.
func WithEngine(e engine.Engine) Option {
	return func(a *App) { a.Engine = e }
}

// WithOpener replaces the browser used to open drawings.
func WithOpener(o excalidraw.Opener) Option {
	return func(a *App) { a.opener = o }
}

func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if err := ConfigureLogging(cfg); err != nil {
		return nil, err
	}
	if err := app.initStorage(); err != nil {
		return nil, err
	}
	if err := app.initEngine(); err != nil {
		return nil, err
	}
	if err := app.initRunner(); err != nil {
		return nil, err
	}
	app.initConverter()
	app.initExcalidraw()
	if err := app.initJanitor(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"engine":      app.Engine.Name(),
		"model":       app.EngineOptions.Model,
		"concurrency": app.Runner.Concurrency(),
	}).Info("application initialization complete")
	return app, nil
}

// ConfigureLogging applies log.level and log.format to the standard logger.
func ConfigureLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.Log.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Shutdown stops the janitor and waits for in-flight jobs until ctx ends.
func (a *App) Shutdown(ctx context.Context) error {
	if a.Janitor != nil {
		a.Janitor.Stop(ctx)
	}
	if a.Runner != nil {
		return a.Runner.Wait(ctx)
	}
	return nil
}

// --- Private Helper Methods ---

func (a *App) initStorage() error {
	for _, dir := range []string{
		a.Config.Storage.UploadsDir,
		a.Config.Storage.DownloadsDir,
		a.Config.Storage.DataDir,
		a.Config.Excalidraw.UploadsDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("init storage %s: %w", dir, err)
		}
	}
	a.Jobs = store.NewJobStore(store.NewMemoryBackend())
	return nil
}

func (a *App) initEngine() error {
	cfg := a.Config
	a.EngineOptions = engine.Options{
		Model:    cfg.Engine.Model,
		Language: cfg.Engine.Language,
		ForceCPU: cfg.Engine.ForceCPU,
	}
	if a.Engine != nil {
		return nil
	}
	eng, err := NewEngine(cfg)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	a.Engine = eng
	return nil
}

// NewEngine builds the adapter selected by engine.provider.
func NewEngine(cfg *config.Config) (engine.Engine, error) {
	switch cfg.Engine.Provider {
	case config.ProviderWhisperCpp:
		wc := cfg.Engine.WhisperCpp
		return engine.NewWhisperCpp(engine.WhisperCppConfig{
			Binary:    wc.Binary,
			FFmpeg:    wc.FFmpeg,
			ModelsDir: wc.ModelsDir,
			Threads:   wc.Threads,
		}), nil
	case config.ProviderOpenAI:
		oc := cfg.Engine.OpenAI
		return engine.NewOpenAI(engine.OpenAIConfig{APIKey: oc.APIKey, Model: oc.Model, BaseURL: oc.BaseURL})
	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Engine.Provider)
	}
}

func (a *App) initRunner() error {
	r, err := worker.NewRunner(worker.Deps{
		Jobs:        a.Jobs,
		Engine:      a.Engine,
		Options:     a.EngineOptions,
		Concurrency: a.Config.Transcription.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}
	a.Runner = r
	return nil
}

func (a *App) initConverter() {
	a.Converter = converter.New(converter.Config{
		OutputDir: a.Config.Storage.DownloadsDir,
		FFmpeg:    a.Config.Conversion.FFmpeg,
	})
}

func (a *App) initExcalidraw() {
	opener := a.opener
	if opener == nil {
		opener = excalidraw.NewBrowserOpener(a.Config.Excalidraw.Browser)
	}
	recents := excalidraw.NewRecentStore(a.Config.Storage.DataDir, a.Config.Excalidraw.RecentLimit)
	a.Excalidraw = excalidraw.NewLauncher(recents, opener, a.Config.Excalidraw.UploadsDir)
}

func (a *App) initJanitor() error {
	j, err := tasks.NewJanitor(tasks.JanitorConfig{
		Schedule:  a.Config.Transcription.SweepSchedule,
		JobTTL:    a.Config.Transcription.JobTTL,
		Retention: a.Config.Conversion.Retention,
	}, a.Jobs, a.Converter)
	if err != nil {
		return fmt.Errorf("init janitor: %w", err)
	}
	a.Janitor = j
	return nil
}
