package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// Verbose forces debug level.
	Verbose bool

	// Console receives human-readable output. Nil disables console output,
	// which is what the progress TUI wants.
	Console io.Writer

	// Dir is where the log file is created. Empty disables the log file.
	Dir  string
	Node string

	// Now is used for the log file name; defaults to time.Now.
	Now func() time.Time
}

// Logger owns the zap logger and the log file of one run.
type Logger struct {
	zap   *zap.Logger
	file  *os.File
	path  string
	runID string
}

// New creates the run logger. Every entry carries a run_id field.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var cores []zapcore.Core
	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(newEncoder("console"), zapcore.AddSync(opts.Console), level))
	}

	l := &Logger{runID: uuid.NewString()}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		l.path = filepath.Join(opts.Dir, FileName(opts.Node, now()))
		// #nosec G304
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
		// The file always records debug output.
		cores = append(cores, zapcore.NewCore(newEncoder("json"), zapcore.AddSync(f), zapcore.DebugLevel))
	}

	core := zapcore.NewNopCore()
	if len(cores) > 0 {
		core = zapcore.NewTee(cores...)
	}
	l.zap = zap.New(core).With(zap.String("run_id", l.runID))
	if opts.Node != "" {
		l.zap = l.zap.With(zap.String("node", opts.Node))
	}
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop(), runID: uuid.NewString()}
}

// ParseLevel parses a log level name. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// FileName returns the log file name of a run started at t.
func FileName(node string, t time.Time) string {
	if node == "" {
		node = "unknown"
	}
	return fmt.Sprintf("onboard-%s-%s.log", node, t.Format("20060102-150405"))
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderCfg.CallerKey = zapcore.OmitKey
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Zap returns the underlying zap logger.
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Logr returns the logger as a logr.Logger.
func (l *Logger) Logr() logr.Logger { return zapr.NewLogger(l.zap) }

// RunID returns the id attached to every entry of this run.
func (l *Logger) RunID() string { return l.runID }

// FilePath returns the log file path, or "" when no file is written.
func (l *Logger) FilePath() string { return l.path }

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	err := l.zap.Sync()
	if err != nil && isStdoutSyncError(err) {
		err = nil
	}
	if l.file != nil {
		if cerr := l.file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		l.file = nil
	}
	return err
}

// isStdoutSyncError checks if error is harmless stdout/stderr sync error.
// On Linux, syncing stdout/stderr returns EINVAL or ENOTTY which are safe to ignore.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
