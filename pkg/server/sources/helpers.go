package sources

import (
	"tc.com/price-oracle/pkg/logging"
)

// GetLoggerFromConfig extracts the logger from an adapter config map or
// returns a noop logger so adapters never dereference a nil logger.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}

	return logging.NewNoopLogger()
}

// SourceIDFromConfig resolves the source identifier from an adapter config
// map, falling back to the given default.
func SourceIDFromConfig(config map[string]interface{}, fallback SourceID) SourceID {
	if s, ok := config["source"].(SourceID); ok && s != "" {
		return s
	}
	if s, ok := config["source"].(string); ok && s != "" {
		return SourceID(s)
	}
	return fallback
}
