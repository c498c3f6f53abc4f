// Package obslog provides structured logging with run context.
//
// Two variants are available:
//   - Logger: non-sugared zap.Logger for the hot pipeline path (structured
//     fields, no per-call formatting cost).
//   - SugaredLogger: printf-style logging for CLI/debug surfaces, obtained
//     via Logger.Sugar().
package obslog

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger pre-populated with session/rule context.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger wraps zap.SugaredLogger for printf-style call sites.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

// New creates a logger scoped to one engine run, writing JSON to stderr.
func New(sessionID, rule string) *Logger {
	return newWithWriter(sessionID, rule, os.Stderr)
}

func newWithWriter(sessionID, rule string, w io.Writer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), zapcore.DebugLevel)
	fields := []zap.Field{zap.String("rule", rule)}
	if sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}
	return &Logger{zap: zap.New(core).With(fields...)}
}

// WithOutput returns a logger identical to l but writing to w.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), zapcore.DebugLevel)
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))}
}

// WithResource returns a logger annotated with the resource path in scope.
func (l *Logger) WithResource(path string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("resource", path))}
}

// WithStage returns a logger annotated with the pipeline stage index/kind.
func (l *Logger) WithStage(index int, kind string) *Logger {
	return &Logger{zap: l.zap.With(zap.Int("stage", index), zap.String("stage_kind", kind))}
}

func (l *Logger) Debug(msg string, fields map[string]any) { l.zap.Debug(msg, zap.Any("fields", fields)) }
func (l *Logger) Info(msg string, fields map[string]any)  { l.zap.Info(msg, zap.Any("fields", fields)) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.zap.Warn(msg, zap.Any("fields", fields)) }
func (l *Logger) Error(msg string, fields map[string]any) { l.zap.Error(msg, zap.Any("fields", fields)) }

// Sugar returns a SugaredLogger for CLI/debug call sites.
func (l *Logger) Sugar() *SugaredLogger { return &SugaredLogger{sugar: l.zap.Sugar()} }

func (s *SugaredLogger) Debugf(tmpl string, args ...any) { s.sugar.Debugf(tmpl, args...) }
func (s *SugaredLogger) Infof(tmpl string, args ...any)  { s.sugar.Infof(tmpl, args...) }
func (s *SugaredLogger) Warnf(tmpl string, args ...any)  { s.sugar.Warnf(tmpl, args...) }
func (s *SugaredLogger) Errorf(tmpl string, args ...any) { s.sugar.Errorf(tmpl, args...) }

// With returns a SugaredLogger carrying additional key/value context.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
