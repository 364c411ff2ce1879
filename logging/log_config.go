package logging

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Config is the "log" section of the configuration file.
type Config struct {
	Level string `json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	// File, when set, adds a size-rotated file output next to stdout.
	File      string `json:"file,omitempty"`
	MaxSizeMB int    `json:"max_size_mb,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if _, err := LevelFromString(cfg.Level); err != nil {
		return goutils.NewConfigValidationError(fmt.Sprintf("%s.level", path), err)
	}
	if cfg.MaxSizeMB < 0 {
		return goutils.NewConfigValidationError(fmt.Sprintf("%s.max_size_mb", path),
			errors.Errorf("must be non-negative, got %d", cfg.MaxSizeMB))
	}
	return nil
}

// NewLoggerFromConfig builds a stdout logger per cfg. The closer releases the log file, if any,
// and is never nil.
func NewLoggerFromConfig(name string, cfg Config) (Logger, io.Closer, error) {
	level, err := LevelFromString(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := newImpl(name, level, true, NewStdoutAppender())
	if cfg.File == "" {
		return logger, io.NopCloser(nil), nil
	}
	fileAppender, closer := NewFileAppender(cfg.File, cfg.MaxSizeMB)
	logger.AddAppender(fileAppender)
	return logger, closer, nil
}
