package console

import "github.com/Iron-Ham/jdecomp/internal/logging"

// LoggerSink writes entries to the structured debug log.
type LoggerSink struct {
	logger  *logging.Logger
	catalog *Catalog
}

// NewLoggerSink returns a sink that logs through logger.
func NewLoggerSink(logger *logging.Logger, c *Catalog) *LoggerSink {
	return &LoggerSink{logger: logger, catalog: c}
}

// Log records e with its code and rendered text.
func (s *LoggerSink) Log(e Entry) {
	args := []any{"code", e.Code}
	if len(e.Params) > 0 {
		args = append(args, "params", e.Params)
	}
	text := s.catalog.Render(e)
	switch e.Severity {
	case SeverityError:
		s.logger.Error(text, args...)
	case SeverityWarning:
		s.logger.Warn(text, args...)
	default:
		s.logger.Info(text, args...)
	}
}
