// Package corelog builds the process-wide logrus logger, following the
// convention of a single configured *logrus.Logger threaded
// through every constructor rather than the package-level default logger.
package corelog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus logger configured from the given level and format.
// format is "json" for production, anything else falls back to the
// human-readable text formatter used in local development.
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return log
}
