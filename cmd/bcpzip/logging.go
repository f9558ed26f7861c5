package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds the logging flags shared by every command.
type LogConfig struct {
	LogLevel string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogFile  string `name:"log-file" help:"Also write logs to this file, rotated at 100MB" optional:"" type:"path"`
}

func (lc *LogConfig) newLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(lc.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.LogLevel, err)
	}
	logger.SetLevel(level)

	// Progress goes to stdout; logs stay on stderr so the two can be split.
	var out io.Writer = os.Stderr
	if lc.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   lc.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			Compress:   true,
		})
	}
	logger.SetOutput(out)

	return logger, nil
}
