// Package logger builds the logrus logger shared by the command line tool.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	// Verbose enables the debug level and reports the caller of every entry.
	Verbose bool
	// File, when set, receives a copy of every entry. The file is rotated once
	// it reaches MaxSize megabytes.
	File    string
	MaxSize int
	// Output is the console writer, stderr by default.
	Output io.Writer
	// NoColors disables the colored console output.
	NoColors bool
}

// New returns a logger writing to the console and, optionally, to a rotating log file.
func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
		log.SetReportCaller(true)
	}

	log.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	console := opts.Output
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{console}

	if opts.File != "" {
		maxSize := opts.MaxSize
		if maxSize <= 0 {
			maxSize = 10
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			MaxSize:    maxSize,
			MaxBackups: 3,
			MaxAge:     7,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log
}
