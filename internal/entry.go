// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/launch"
	"github.com/starford/folio/internal/repository"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/tui"
	"github.com/starford/folio/internal/watch"
)

var (
	errConfigRequired = errors.New("config is required")
	// ErrNoSite is returned when no site has been configured yet.
	ErrNoSite = errors.New("no site configured, run `folio use <path>` first")
)

// Run starts the interactive session with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if cfg.Site.Path == "" {
		return ErrNoSite
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	logger := app.logger
	if logger == nil {
		w, closeLog, err := openLogFile(cfg.App.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
		logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("site", cfg.Site.Name),
		slog.String("content_root", cfg.ContentRoot()),
		slog.String("generator", string(cfg.Site.Generator)),
		slog.Bool("watch", cfg.App.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	repo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}

	launcher := app.launcher
	if launcher == nil {
		sys := launch.NewSystem(cfg.Site.Editor)
		logger.Debug("editor resolved", slog.String("editor", sys.Editor))
		launcher = sys
	}

	model := tui.New(repo, tui.Options{
		SiteName:   cfg.Site.Name,
		Launcher:   launcher,
		PreviewURL: cfg.PreviewURL,
		Logger:     logger,
	})

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gCtx))

	if cfg.App.Watch {
		g.Go(func() error {
			return superviseWatcher(watchCtx, logger, program.Send, func(ctx context.Context) error {
				return watch.Watch(ctx, repo.Root(), watch.DefaultDebounce, logger, func(paths []string) {
					program.Send(tui.FilesChangedMsg{Paths: paths})
				})
			})
		})
	}

	g.Go(func() error {
		defer stopWatch()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Session ended")
	return nil
}

// superviseWatcher runs the disk watcher. The change notice is optional, so a
// watcher failure is logged and reported to the UI but never ends the session.
func superviseWatcher(ctx context.Context, logger *slog.Logger, send func(tea.Msg), run func(context.Context) error) error {
	if err := run(ctx); err != nil {
		logger.Warn("watcher disabled", slog.String("error", err.Error()))
		send(tui.WatchFailedMsg{Err: err})
	}
	return nil
}

// openRepository scans the configured content root.
func openRepository(cfg *Config, logger *slog.Logger) (*repository.Repository, error) {
	store, err := storage.NewFS(cfg.ContentRoot())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	repo := repository.New(store, logger)
	if _, err := repo.Scan(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", cfg.ContentRoot(), err)
	}
	return repo, nil
}

func openLogFile(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
