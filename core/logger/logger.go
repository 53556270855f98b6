package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

const timeFormat = "06-01-02 15:04:05"

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.NoLevel
	}
}

type sink struct {
	w       io.Writer
	noColor bool
}

// ColoredLogger fans every record out to its sinks through zerolog console
// writers. Terminal sinks are colored, everything else is plain text.
type ColoredLogger struct {
	verbose bool
	mu      sync.RWMutex
	sinks   []sink
	zl      zerolog.Logger
}

var globalLogger *ColoredLogger

func init() {
	globalLogger = newColoredLogger(os.Stdout)
}

func newColoredLogger(w io.Writer) *ColoredLogger {
	cl := &ColoredLogger{sinks: []sink{newSink(w)}}
	cl.rebuild()
	return cl
}

func newSink(w io.Writer) sink {
	return sink{w: w, noColor: w != os.Stdout && w != os.Stderr}
}

// rebuild recreates the zerolog logger; the caller must hold mu for writing.
func (cl *ColoredLogger) rebuild() {
	writers := make([]io.Writer, 0, len(cl.sinks))
	for _, s := range cl.sinks {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        s.w,
			NoColor:    s.noColor,
			TimeFormat: timeFormat,
		})
	}

	level := zerolog.InfoLevel
	if cl.verbose {
		level = zerolog.DebugLevel
	}

	cl.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func SetVerbose(verbose bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.verbose = verbose
	globalLogger.rebuild()
}

func IsVerbose() bool {
	globalLogger.mu.RLock()
	defer globalLogger.mu.RUnlock()
	return globalLogger.verbose
}

// SetWriterForAll replaces every sink with writer.
func SetWriterForAll(writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.sinks = []sink{newSink(writer)}
	globalLogger.rebuild()
}

// AddWriterForAll tees log output into writer, e.g. a --logfile.
func AddWriterForAll(writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.sinks = append(globalLogger.sinks, newSink(writer))
	globalLogger.rebuild()
}

func (cl *ColoredLogger) log(level LogLevel, format string, args ...interface{}) {
	cl.mu.RLock()
	zl := cl.zl
	cl.mu.RUnlock()

	zl.WithLevel(level.zerologLevel()).Msgf(format, args...)

	if level == FATAL {
		os.Exit(1)
	}
}

func Debug(format string, args ...interface{}) {
	globalLogger.log(DEBUG, format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.log(INFO, format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.log(WARN, format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.log(ERROR, format, args...)
}

func Fatal(format string, args ...interface{}) {
	globalLogger.log(FATAL, format, args...)
}

func GetLogFromLevel(level LogLevel) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		globalLogger.log(level, format, args...)
	}
}
