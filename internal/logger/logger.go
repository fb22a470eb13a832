package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevel()

// Init builds the global zap logger for env. "production" logs JSON at info,
// anything else logs human-readable output at debug.
func Init(env string) error {
	var conf zap.Config
	if env == "production" {
		conf = zap.NewProductionConfig()
		level.SetLevel(zapcore.InfoLevel)
	} else {
		conf = zap.NewDevelopmentConfig()
		level.SetLevel(zapcore.DebugLevel)
	}
	conf.Level = level

	l, err := conf.Build()
	if err != nil {
		return fmt.Errorf("conf.Build -> %w", err)
	}
	zap.ReplaceGlobals(l)

	return nil
}

// SetLevel changes the level of the global logger at runtime.
func SetLevel(text string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(text)); err != nil {
		return fmt.Errorf("invalid log level %q -> %w", text, err)
	}
	level.SetLevel(lvl)

	return nil
}

func Level() zapcore.Level {
	return level.Level()
}
