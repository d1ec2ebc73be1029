package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/five82/likebar/internal/config"
	"github.com/five82/likebar/internal/likeapi"
	"github.com/five82/likebar/internal/logging"
	"github.com/five82/likebar/internal/prefs"
	"github.com/five82/likebar/internal/ui"
	"github.com/five82/likebar/internal/widget"
)

// ErrNoWidgets is returned when no configured widget can be started.
var ErrNoWidgets = errors.New("no valid widget configured")

// Options configure the likebar application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/likebar/prefs.toml
	LogPath    string // empty uses the config's log_file
	PollEvery  int    // seconds; zero uses the config value
	Ephemeral  bool   // keep liked flags in memory only
	Debug      bool
}

// Run boots the likebar TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if opts.LogPath != "" {
		cfg.LogFile = opts.LogPath
	}

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	logger, closeLog, err := logging.OpenOrNop(cfg.LogFile, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "likebar: logging disabled: %v\n", err)
		cfg.LogFile = ""
	}
	defer func() { _ = closeLog() }()

	likes := openLikeStore(cfg, opts.Ephemeral, logger)

	widgets, err := BuildWidgets(cfg, likes, logger)
	if err != nil {
		return err
	}
	logger.Info("likebar starting", zap.Int("widgets", len(widgets)), zap.Duration("poll_interval", cfg.PollInterval))

	stop := StartPollers(ctx, widgets)
	defer stop()

	engines := make([]ui.Engine, len(widgets))
	for i, w := range widgets {
		engines[i] = w
	}
	return ui.Run(ui.Options{
		Context:   ctx,
		Widgets:   engines,
		LogPath:   cfg.LogFile,
		Logger:    logger,
		PrefsPath: opts.PrefsPath,
	})
}

// BuildWidgets creates one widget per valid config entry. Invalid entries
// are logged and skipped; ErrNoWidgets is returned when none remain.
func BuildWidgets(cfg config.Config, likes prefs.LikeStore, logger *zap.Logger) ([]*widget.Widget, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	configs, bad := cfg.WidgetConfigs()
	skipped := make([]error, 0, len(bad))
	for _, e := range bad {
		logger.Warn("skipping widget", zap.Int("index", e.Index), zap.String("page_key", e.PageKey), zap.Error(e.Err))
		skipped = append(skipped, e)
	}

	clients := make(map[string]*likeapi.Client)
	widgets := make([]*widget.Widget, 0, len(configs))
	for _, wc := range configs {
		client, ok := clients[wc.APIBase]
		if !ok {
			var err error
			client, err = likeapi.NewClient(wc.APIBase, likeapi.WithTenant(wc.Tenant), likeapi.WithLogger(logger))
			if err != nil {
				err = fmt.Errorf("%w: %v", widget.ErrInvalidConfig, err)
				logger.Warn("skipping widget", zap.String("page_key", wc.PageKey), zap.Error(err))
				skipped = append(skipped, fmt.Errorf("widget %s: %w", wc.PageKey, err))
				continue
			}
			clients[wc.APIBase] = client
		}

		w, err := widget.New(wc, client, likes, logger)
		if err != nil {
			logger.Warn("skipping widget", zap.String("page_key", wc.PageKey), zap.Error(err))
			skipped = append(skipped, fmt.Errorf("widget %s: %w", wc.PageKey, err))
			continue
		}
		logger.Debug("widget ready", zap.String("page_key", wc.PageKey), zap.String("url", client.PageURL(wc.PageKey)))
		widgets = append(widgets, w)
	}

	if len(widgets) == 0 {
		if len(skipped) == 0 {
			return nil, ErrNoWidgets
		}
		return nil, fmt.Errorf("%w: %w", ErrNoWidgets, errors.Join(skipped...))
	}
	return widgets, nil
}

// openLikeStore returns the file-backed liked-flag store, or an in-memory
// one when ephemeral or when the file store cannot be used.
func openLikeStore(cfg config.Config, ephemeral bool, logger *zap.Logger) prefs.LikeStore {
	if ephemeral {
		return prefs.NewMemoryLikeStore()
	}
	store, err := prefs.NewFileLikeStore(cfg.LikedFile)
	if err != nil {
		logger.Warn("liked flags will not persist", zap.String("path", cfg.LikedFile), zap.Error(err))
		return prefs.NewMemoryLikeStore()
	}
	return store
}
