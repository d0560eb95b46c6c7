// Package logging builds the process wide log15 logger from the
// logging section of the configuration.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/GESkunkworks/snapkeeper/internal/config"
	"github.com/inconshreveable/log15"
)

// New returns a logger writing to stdout and, when cfg.File is set,
// appending logfmt records to that file as well.
func New(cfg config.LoggingConfig) (log15.Logger, error) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg config.LoggingConfig, out io.Writer) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	format, err := formatFor(cfg.Format)
	if err != nil {
		return nil, err
	}

	handler := log15.StreamHandler(out, format)
	if cfg.File != "" {
		fh, err := log15.FileHandler(cfg.File, log15.LogfmtFormat())
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		handler = log15.MultiHandler(handler, fh)
	}

	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(lvl, handler))
	return logger, nil
}

func formatFor(name string) (log15.Format, error) {
	switch name {
	case "", "logfmt":
		return log15.LogfmtFormat(), nil
	case "json":
		return log15.JsonFormat(), nil
	case "terminal":
		return log15.TerminalFormat(), nil
	}
	return nil, fmt.Errorf("unknown log format %q", name)
}
