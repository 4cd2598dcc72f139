// Package logging builds the component loggers used across the tool.
package logging

import (
	"io"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where log output goes.
type Options struct {
	// File is the log file path; empty means stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var (
	mu     sync.Mutex
	output io.Writer = os.Stderr
)

// Setup directs subsequently created loggers to opts. When a log file is
// configured it is rotated by size; the returned closer releases it.
func Setup(opts Options) io.Closer {
	mu.Lock()
	defer mu.Unlock()
	if opts.File == "" {
		output = os.Stderr
		return nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	output = lj
	return lj
}

// New returns a logger prefixed with the component name, e.g. "[cache] ".
func New(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return log.New(output, "["+component+"] ", log.LstdFlags)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
