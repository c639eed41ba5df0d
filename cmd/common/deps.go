// Package common holds the dependency wiring shared by the CLI commands.
package common

import (
	"fmt"

	"github.com/jonesrussell/mxindex/internal/config"
	"github.com/jonesrussell/mxindex/internal/logger"
)

// Debug is set by the root command's --debug flag.
var Debug bool

// Deps holds the dependencies every command needs.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
}

// NewDeps loads the configuration and creates the logger.
func NewDeps() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := &logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Development: cfg.Logger.Development,
	}
	if Debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}
