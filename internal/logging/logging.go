// Package logging provides the shared logger used across every p2pflood component.
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log   *zap.Logger
	Sugar *zap.SugaredLogger
)

func init() {
	level := resolveLevel()
	encoder := zapcore.NewConsoleEncoder(encoderConfig())

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if file, err := openLogFile("logs", "p2pflood.log"); err == nil {
		sinks = append(sinks, zapcore.AddSync(file))
	}

	cores := make([]zapcore.Core, len(sinks))
	for i, sink := range sinks {
		cores[i] = zapcore.NewCore(encoder, sink, level)
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Sugar = Log.Sugar()
}

// resolveLevel reads P2PFLOOD_LOG_LEVEL, falling back to the more
// generic LOG_LEVEL, and defaults to info when neither is set or the
// value doesn't parse.
func resolveLevel() zapcore.Level {
	for _, name := range []string{"P2PFLOOD_LOG_LEVEL", "LOG_LEVEL"} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(v))); err == nil {
			return level
		}
	}
	return zapcore.InfoLevel
}

// encoderConfig renders a fixed "2006/01/02 15:04:05" timestamp instead
// of zap's default ISO8601, to keep log lines aligned with the rest of
// this engine's plain-text output.
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006/01/02 15:04:05"))
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func openLogFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
