package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// kvbLogger implements the ILogger interface on top of a shared zap core.
// Every package logger has its own level so single packages can be made verbose.
type kvbLogger struct {
	level zap.AtomicLevel
	sugar *zap.SugaredLogger
}

func (l *kvbLogger) SetLevel(level logger.LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *kvbLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *kvbLogger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *kvbLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *kvbLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l *kvbLogger) Panicf(format string, args ...interface{}) {
	l.sugar.Panicf(format, args...)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	factoryMu    sync.Mutex
	factoryCore  zapcore.Core
	defaultLevel = logger.INFO
)

// CreateLogger implements the dragonboat logger.Factory.
// Loggers created before InitLoggers write to stdout with the console encoder.
func CreateLogger(pkgName string) logger.ILogger {
	factoryMu.Lock()
	core := factoryCore
	lvl := defaultLevel
	factoryMu.Unlock()

	if core == nil {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig("console")), zapcore.AddSync(os.Stdout), zapcore.DebugLevel)
	}

	level := zap.NewAtomicLevelAt(toZapLevel(lvl))
	// the shared core accepts everything, the per package level filters.
	// skip kvbLogger and the dragonboat wrapper when reporting the caller
	filtered := &levelCore{Core: core, level: level}
	z := zap.New(filtered, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zap.ErrorLevel)).Named(pkgName)

	return &kvbLogger{
		level: level,
		sugar: z.Sugar(),
	}
}

// levelCore overrides the level of a wrapped core
type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "", "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

func toZapLevel(level logger.LogLevel) zapcore.Level {
	switch level {
	case logger.DEBUG:
		return zapcore.DebugLevel
	case logger.INFO:
		return zapcore.InfoLevel
	case logger.WARNING:
		return zapcore.WarnLevel
	case logger.ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.DPanicLevel
	}
}

func encoderConfig(format string) zapcore.EncoderConfig {
	if format == "json" {
		return zap.NewProductionEncoderConfig()
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	return cfg
}

// buildCore creates one core per output and tees them together
func buildCore(c LogConfig) (zapcore.Core, error) {
	format := strings.ToLower(c.Format)
	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig(format))
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig(format))
	}

	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	cores := make([]zapcore.Core, 0, len(outputs))
	for _, out := range outputs {
		var ws zapcore.WriteSyncer
		switch strings.ToLower(out) {
		case "stdout":
			ws = zapcore.AddSync(os.Stdout)
		case "stderr":
			ws = zapcore.AddSync(os.Stderr)
		default:
			if c.Rotation.Enable {
				filename := out
				if strings.TrimSpace(c.Rotation.Filename) != "" {
					filename = c.Rotation.Filename
				}
				ws = zapcore.AddSync(&lumberjack.Logger{
					Filename:   filename,
					MaxSize:    max(c.Rotation.MaxSizeMB, 10),
					MaxBackups: max(c.Rotation.MaxBackups, 1),
					MaxAge:     max(c.Rotation.MaxAgeDays, 7),
					Compress:   c.Rotation.Compress,
				})
			} else {
				if dir := filepath.Dir(out); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return nil, fmt.Errorf("failed to create log directory: %w", err)
					}
				}
				f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
				if err != nil {
					return nil, fmt.Errorf("failed to open log file: %w", err)
				}
				ws = zapcore.AddSync(f)
			}
		}
		cores = append(cores, zapcore.NewCore(encoder, ws, zapcore.DebugLevel))
	}

	return zapcore.NewTee(cores...), nil
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// loggerNames are the loggers of this module that get the configured level
var loggerNames = []string{
	"correlation",
	"dispatch",
	"transport",
	"transport/local",
	"transport/ws",
	"store",
	"server",
	"client",
}

// InitLoggers installs the zap backed logger factory and applies the configured level
// to all loggers of the module.
func InitLoggers(config LogConfig) error {
	level, err := ParseLogLevel(config.Level)
	if err != nil {
		return err
	}

	core, err := buildCore(config)
	if err != nil {
		return err
	}

	factoryMu.Lock()
	factoryCore = core
	defaultLevel = level
	factoryMu.Unlock()

	// Set as the global logger factory, existing package loggers are recreated
	logger.SetLoggerFactory(CreateLogger)

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
