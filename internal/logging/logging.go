// Package logging builds the zap loggers used across likebar.
//
// The terminal belongs to the TUI, so records go to a JSON file that the
// log pane can tail.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var encoderCfg = zapcore.EncoderConfig{
	MessageKey: "msg",
	NameKey:    "name",

	LevelKey:    "level",
	EncodeLevel: zapcore.CapitalLevelEncoder,

	CallerKey:    "caller",
	EncodeCaller: zapcore.ShortCallerEncoder,

	TimeKey:    "time",
	EncodeTime: zapcore.RFC3339TimeEncoder,
}

// New returns a JSON logger writing to w at level and above.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	return zap.New(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(zapcore.AddSync(w)),
			level,
		),
		zap.AddCaller(),
	)
}

// Open appends JSON records to the file at path, creating it and its parent
// directory as needed. The returned close func syncs and closes the file.
func Open(path string, level zapcore.Level) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := New(file, level)
	closeFn := func() error {
		_ = logger.Sync()
		return file.Close()
	}
	return logger, closeFn, nil
}

// OpenOrNop is Open with a no-op logger when the file cannot be opened. The
// error is still returned so the caller can report it once.
func OpenOrNop(path string, level zapcore.Level) (*zap.Logger, func() error, error) {
	logger, closeFn, err := Open(path, level)
	if err != nil {
		return zap.NewNop(), func() error { return nil }, err
	}
	return logger, closeFn, nil
}
