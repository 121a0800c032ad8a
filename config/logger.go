package config

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the JSON logger used by the server and CLI.
func NewLogger(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// LogError logs err with the module and function it came from.
func LogError(logger *logrus.Logger, module, fn string, err error, fields logrus.Fields) {
	entry := logger.WithFields(logrus.Fields{
		"module":   module,
		"function": fn,
	})
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.WithError(err).Error(err.Error())
}
