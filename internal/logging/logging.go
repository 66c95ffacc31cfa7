package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the root logger entry for a command.
func New(app, level string, jsonOut bool) *logrus.Entry {
	return NewWithOutput(os.Stdout, app, level, jsonOut)
}

func NewWithOutput(w io.Writer, app, level string, jsonOut bool) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(w)
	if jsonOut {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: false,
			FullTimestamp: true,
		})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger.WithField("app", app)
}
