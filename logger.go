package eventhandler

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultMaxSizeMB is the default size of the log file before rotation
	DefaultMaxSizeMB = 10

	// DefaultMaxBackups is how many rotated files are kept by default
	DefaultMaxBackups = 5
)

var errNoLogPath = errors.New("log file path is required when logging is enabled")

// LogConfig holds configuration for event loop logging
type LogConfig struct {
	Enabled     bool   // Whether logging is enabled
	FilePath    string // Path to the log file
	MaxSizeMB   int    // Rotation threshold in megabytes, DefaultMaxSizeMB when zero
	MaxBackups  int    // Rotated files to keep, DefaultMaxBackups when zero
	Compress    bool   // Gzip rotated files
	IncludeInfo bool   // Whether to include INFO level logs (ERROR always logged when enabled)
}

// rotator maps the config onto a rotating file writer
func (cfg *LogConfig) rotator() *lumberjack.Logger {
	w := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	if w.MaxSize <= 0 {
		w.MaxSize = DefaultMaxSizeMB
	}
	if w.MaxBackups <= 0 {
		w.MaxBackups = DefaultMaxBackups
	}
	return w
}

// newLogger builds a JSON logrus logger writing to a rotating file.
// A nil or disabled config yields a logger that discards everything.
func newLogger(cfg *LogConfig) (*logrus.Logger, io.WriteCloser, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if cfg == nil || !cfg.Enabled || cfg.FilePath == "" {
		logger.SetOutput(io.Discard)
		logger.SetLevel(logrus.PanicLevel)
		if cfg != nil && cfg.Enabled {
			return logger, nil, errNoLogPath
		}
		return logger, nil, nil
	}

	writer := cfg.rotator()
	logger.SetOutput(writer)
	if cfg.IncludeInfo {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.ErrorLevel)
	}
	return logger, writer, nil
}
