// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger
)

// Options controls where Init sends log output.
type Options struct {
	Level string
	// File enables a rotating log file in addition to the console when set.
	File string
}

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = zerolog.New(consoleWriter(os.Stdout)).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Caller().
		Logger()
}

func consoleWriter(f *os.File) zerolog.ConsoleWriter {
	isTerminal := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    !isTerminal,
	}
}

// Init rebuilds the global loggers from opts. Both Log and the zerolog/log
// package logger share the same sinks afterwards.
func Init(opts Options) error {
	var out io.Writer = consoleWriter(os.Stdout)

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    16, // megabytes
			MaxBackups: 8,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, fileWriter)
	}

	Log = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	SetLevel(opts.Level)
	return nil
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
}
