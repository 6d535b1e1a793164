package cmd

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/httpipe/packages/core/config"
	"github.com/sirupsen/logrus"
)

// newLogger builds the diagnostic logger. Verbose forces debug level.
func newLogger(w io.Writer, level string, verbose, noColor bool) (*logrus.Logger, error) {
	if level == "" {
		level = config.DefaultLogLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl = logrus.DebugLevel
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    noColor,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})
	return log, nil
}
