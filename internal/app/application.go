// Package app wires configuration, product sources, the ingredient
// dictionary, the risk engine and the history log into one application
// context shared by the CLI and the HTTP server.
package app

import (
	"fmt"
	"os"

	"github.com/duartefn/rotulo/internal/fooddict"
	"github.com/duartefn/rotulo/internal/history"
	"github.com/duartefn/rotulo/internal/logging"
	"github.com/duartefn/rotulo/internal/risk"
	"github.com/duartefn/rotulo/internal/source"
)

// Application holds the assembled components.
type Application struct {
	Config     *Config
	Engine     *risk.Engine
	Source     source.ProductSource
	Dictionary *fooddict.Dictionary
	History    *history.Log
	Logger     logging.Logger
}

// NewApplication builds every component from cfg. Pass a nil logger to get
// the default stdout logger.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("rotulo")
	}

	src, err := source.New(cfg.SourceBackend, source.Options{
		BaseURL:        cfg.SourceBaseURL,
		DSN:            cfg.SourceDSN,
		TimeoutSeconds: cfg.SourceTimeoutSeconds,
	}, logger)
	if err != nil {
		return nil, err
	}

	dict := fooddict.New()
	if cfg.FoodCSVPath != "" {
		if _, statErr := os.Stat(cfg.FoodCSVPath); statErr == nil {
			dict, err = fooddict.NewFromCSV(cfg.FoodCSVPath)
			if err != nil {
				return nil, fmt.Errorf("load food dictionary: %w", err)
			}
			logger.Info("food dictionary loaded",
				logging.Field{Key: "path", Value: cfg.FoodCSVPath},
				logging.Field{Key: "records", Value: dict.RecordCount()})
		} else {
			logger.Warn("food csv not found, using built-in rules",
				logging.Field{Key: "path", Value: cfg.FoodCSVPath})
		}
	}

	profiles, err := cfg.facilityProfiles()
	if err != nil {
		return nil, err
	}

	engine := risk.New(risk.Config{
		Source:           src,
		Dictionary:       dict,
		FacilityProfiles: profiles,
		FallbackScore:    cfg.FallbackScore,
		CrossContact:     cfg.CrossContact,
		Logger:           logger,
	})

	var log *history.Log
	if cfg.HistoryDSN != "" {
		log, err = history.Open(cfg.HistoryDSN, logger)
		if err != nil {
			return nil, err
		}
	}

	return &Application{
		Config:     cfg,
		Engine:     engine,
		Source:     src,
		Dictionary: dict,
		History:    log,
		Logger:     logger,
	}, nil
}

// Close releases resources held by the application.
func (a *Application) Close() error {
	var firstErr error
	if closer, ok := a.Source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
