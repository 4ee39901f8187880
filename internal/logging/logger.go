// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a zap.Logger writing JSON to a rotating file under logDir and
// human-readable output to stderr. Development mode switches the console
// core to the colored dev encoder at debug level.
func New(logDir string, development bool) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", logDir, err)
	}

	fileSync := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "warnmap.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.TimeKey = "ts"
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), fileSync, zap.InfoLevel)

	consoleCfg := zap.NewProductionEncoderConfig()
	consoleCfg.TimeKey = "ts"
	consoleLevel := zap.InfoLevel
	if development {
		consoleCfg = zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleLevel = zap.DebugLevel
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.AddSync(os.Stderr),
		consoleLevel,
	)

	return zap.New(zapcore.NewTee(fileCore, consoleCore)), nil
}
