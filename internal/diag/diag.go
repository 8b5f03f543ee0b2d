// Package diag is the diagnostic stream: warnings about dropped or
// unrenderable lines, filter traces and the verbose startup summary. Rendered
// output never goes through it.
package diag

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing text entries to w. Verbose lowers the level
// from warn to debug.
func New(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
