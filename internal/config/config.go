package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/likebar/internal/widget"
)

// Environment variables consulted for values the file leaves empty.
const (
	EnvAPI      = "LIKEBAR_API"
	EnvTenant   = "LIKEBAR_TENANT_ID"
	EnvPageKeys = "LIKEBAR_PAGE_KEYS"
)

const (
	defaultConfigPath = "~/.config/likebar/config.toml"
	defaultLogFile    = "~/.local/state/likebar/likebar.log"
	defaultLikedFile  = "~/.local/share/likebar/liked.toml"
)

// Config is the parsed configuration file.
type Config struct {
	APIBase        string
	Tenant         string
	PollInterval   time.Duration
	InitPages      bool
	MonotonicLikes bool
	LogFile        string
	LikedFile      string
	Widgets        []Widget
}

// Widget is one [[widget]] entry.
type Widget struct {
	PageKey string
	APIBase string // empty inherits Config.APIBase
}

// WidgetError reports a widget entry that cannot be started.
type WidgetError struct {
	Index   int
	PageKey string
	Err     error
}

func (e WidgetError) Error() string {
	if e.PageKey == "" {
		return fmt.Sprintf("widget #%d: %v", e.Index+1, e.Err)
	}
	return fmt.Sprintf("widget #%d (%s): %v", e.Index+1, e.PageKey, e.Err)
}

func (e WidgetError) Unwrap() error { return e.Err }

type rawWidget struct {
	PageKey string `toml:"page_key"`
	API     string `toml:"api"`
}

type rawConfig struct {
	API            string      `toml:"api"`
	TenantID       string      `toml:"tenant_id"`
	PollSeconds    int         `toml:"poll_seconds"`
	InitPages      *bool       `toml:"init_pages"`
	MonotonicLikes bool        `toml:"monotonic_likes"`
	LogFile        string      `toml:"log_file"`
	LikedFile      string      `toml:"liked_file"`
	Widgets        []rawWidget `toml:"widget"`
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw rawConfig
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	return fromRaw(raw), nil
}

func fromRaw(raw rawConfig) Config {
	cfg := Config{
		APIBase:        strings.TrimSpace(raw.API),
		Tenant:         strings.TrimSpace(raw.TenantID),
		PollInterval:   widget.DefaultPollInterval,
		InitPages:      true,
		MonotonicLikes: raw.MonotonicLikes,
		LogFile:        strings.TrimSpace(raw.LogFile),
		LikedFile:      strings.TrimSpace(raw.LikedFile),
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if raw.InitPages != nil {
		cfg.InitPages = *raw.InitPages
	}

	if cfg.APIBase == "" {
		cfg.APIBase = strings.TrimSpace(os.Getenv(EnvAPI))
	}
	if cfg.Tenant == "" {
		cfg.Tenant = strings.TrimSpace(os.Getenv(EnvTenant))
	}

	if cfg.LogFile == "" {
		cfg.LogFile = defaultLogFile
	}
	cfg.LogFile = mustExpand(cfg.LogFile)
	if cfg.LikedFile == "" {
		cfg.LikedFile = defaultLikedFile
	}
	cfg.LikedFile = mustExpand(cfg.LikedFile)

	for _, w := range raw.Widgets {
		cfg.Widgets = append(cfg.Widgets, Widget{
			PageKey: strings.TrimSpace(w.PageKey),
			APIBase: strings.TrimSpace(w.API),
		})
	}
	if len(cfg.Widgets) == 0 {
		for _, key := range strings.Split(os.Getenv(EnvPageKeys), ",") {
			if key = strings.TrimSpace(key); key != "" {
				cfg.Widgets = append(cfg.Widgets, Widget{PageKey: key})
			}
		}
	}
	return cfg
}

// WidgetConfigs builds engine configs for every widget entry. Entries that
// fail validation are returned as WidgetErrors and left out of the result;
// a repeated page key is rejected after its first occurrence.
func (c Config) WidgetConfigs() ([]widget.Config, []WidgetError) {
	var (
		valid []widget.Config
		bad   []WidgetError
		seen  = make(map[string]bool)
	)
	for i, w := range c.Widgets {
		api := w.APIBase
		if api == "" {
			api = c.APIBase
		}
		wc := widget.Config{
			PageKey:        w.PageKey,
			APIBase:        api,
			Tenant:         c.Tenant,
			PollInterval:   c.PollInterval,
			InitPage:       c.InitPages,
			MonotonicLikes: c.MonotonicLikes,
		}
		if err := wc.Validate(); err != nil {
			bad = append(bad, WidgetError{Index: i, PageKey: w.PageKey, Err: err})
			continue
		}
		if seen[w.PageKey] {
			bad = append(bad, WidgetError{
				Index:   i,
				PageKey: w.PageKey,
				Err:     fmt.Errorf("%w: duplicate page key", widget.ErrInvalidConfig),
			})
			continue
		}
		seen[w.PageKey] = true
		valid = append(valid, wc)
	}
	return valid, bad
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
