// Package logging configures the structured logger used across framecache.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Setup returns a logger writing human-readable output at the requested
// verbosity.
func Setup(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// Nop returns a logger that discards everything.
func Nop() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
