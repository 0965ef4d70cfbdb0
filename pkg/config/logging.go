package config

import (
	"fmt"

	"github.com/marmos91/dittorepo/internal/logger"
)

// ConfigureLogging applies the logging section to the global logger.
func ConfigureLogging(cfg *LoggingConfig) error {
	if err := logger.SetFormat(cfg.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	if err := logger.SetOutput(cfg.Output); err != nil {
		return fmt.Errorf("logging.output: %w", err)
	}
	logger.SetLevel(cfg.Level)
	return nil
}
