package zapLogger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once sync.Once
	Log  = zap.NewNop().Sugar()
)

// Options selects the log file and minimum level.
type Options struct {
	File  string // empty logs to stdout only
	Level string // debug, info, warn, error
}

// Init builds the process logger once and returns the opened log file
// handle, nil when logging to stdout only.
func Init(opts Options) (*os.File, error) {
	var (
		logFile *os.File
		initErr error
	)
	once.Do(func() {
		level := zapcore.InfoLevel
		if opts.Level != "" {
			l, err := zapcore.ParseLevel(opts.Level)
			if err != nil {
				initErr = fmt.Errorf("invalid log level %q: %w", opts.Level, err)
				return
			}
			level = l
		}

		sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
		if opts.File != "" {
			f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				initErr = fmt.Errorf("cannot open log file: %w", err)
				return
			}
			logFile = f
			sinks = append(sinks, zapcore.AddSync(f))
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "timestamp"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.NewMultiWriteSyncer(sinks...),
			level,
		)

		Log = zap.New(core, zap.AddCaller()).Sugar()
	})
	return logFile, initErr
}

// FiberLoggingMiddleware returns Fiber's built-in logger middleware writing
// to stdout and, when non-nil, logFile.
func FiberLoggingMiddleware(logFile *os.File) fiber.Handler {
	var out io.Writer = os.Stdout
	if logFile != nil {
		out = io.MultiWriter(os.Stdout, logFile)
	}
	return logger.New(logger.Config{
		Output:     out,
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	})
}
