package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	// Level is one of none, normal or debug.
	Level string `yaml:"level"`
	// Destination is an optional file receiving the same entries.
	Destination string `yaml:"destination,omitempty"`
}

// Prepare returns the program logger writing to stderr and, when set, to the
// destination file. The returned close function releases the destination and
// is never nil.
func (conf *LoggerConfig) Prepare() (*zap.Logger, func() error, error) {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(ec)

	var level zapcore.Level
	switch conf.Level {
	case "none":
		return zap.NewNop(), noClose, nil
	case "debug":
		level = zapcore.DebugLevel
	default:
		level = zapcore.InfoLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level)),
	}

	closer := noClose
	if conf.Destination != "" {
		f, err := os.OpenFile(conf.Destination, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to access log destination (%s): %w", conf.Destination, err)
		}
		fileEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.Lock(f), zap.NewAtomicLevelAt(level)))
		closer = f.Close
	}

	return zap.New(zapcore.NewTee(cores...)).Named("tangle"), closer, nil
}

func noClose() error { return nil }
