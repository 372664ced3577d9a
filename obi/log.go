package obi

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logger of one bus-functional model. Each model owns its level
// so that logging can be turned on for a single driver.
type Logger struct {
	*zap.SugaredLogger

	level zap.AtomicLevel
}

var defaultCore = newConsoleCore()

func newConsoleCore() zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = nil

	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	)
}

// NewLogger creates a logger called obi_<role>.<bus>. Messages go to the core
// of base, or to the console if base is nil. The initial level is info.
func NewLogger(base *zap.Logger, role, bus string) *Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)

	core := defaultCore
	if base != nil {
		core = base.Core()
	}

	l := zap.New(&levelCore{Core: core, level: level}).
		Named("obi_" + role).
		Named(bus)

	return &Logger{
		SugaredLogger: l.Sugar(),
		level:         level,
	}
}

// Enable turns on debug messages.
func (l *Logger) Enable() {
	l.level.SetLevel(zap.DebugLevel)
}

// Disable goes back to info messages only.
func (l *Logger) Disable() {
	l.level.SetLevel(zap.InfoLevel)
}

// Enabled tells if debug messages are emitted.
func (l *Logger) Enabled() bool {
	return l.level.Enabled(zap.DebugLevel)
}

// levelCore filters entries by a private level before handing them to the
// shared core.
type levelCore struct {
	zapcore.Core

	level zap.AtomicLevel
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(
	ent zapcore.Entry,
	ce *zapcore.CheckedEntry,
) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return c.Core.Check(ent, ce)
}
