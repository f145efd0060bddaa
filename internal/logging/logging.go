// Package logging builds the zap logger shared by the CLI and its packages.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w. Without debug only warnings and
// errors are written.
func New(w io.Writer, debug bool) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	if !debug {
		encCfg.CallerKey = ""
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(w)))}
	if debug {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...).Named("tabfy")
}
