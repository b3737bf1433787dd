// Package logger builds the zap logger used by the storage environment.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level is the minimum level, one of debug, info, warn, error. Unknown values fall back to info.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
	// OutputFile is stdout, stderr or a path that is appended to.
	OutputFile string `yaml:"output_file"`
}

// New builds the logger and returns it with a close func that flushes it and closes the log file, if any. The close
// func is meant to be deferred by main for the lifetime of the process.
func New(config Config) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	ws, closeOutput, err := writeSyncer(config.OutputFile)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(encoder(config.Format), ws, level)
	l := zap.New(core, zap.AddCaller()).With(zap.String("service", "heapdb"))

	closer := func() error {
		return multierr.Combine(l.Sync(), closeOutput())
	}
	return l, closer, nil
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.ToLower(format) == "console" {
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

func noClose() error {
	return nil
}

func writeSyncer(outputFile string) (zapcore.WriteSyncer, func() error, error) {
	switch strings.ToLower(outputFile) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), noClose, nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), noClose, nil
	default:
		f, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", outputFile, err)
		}
		return zapcore.AddSync(f), f.Close, nil
	}
}
