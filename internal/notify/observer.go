package notify

import "log/slog"

// LoggingObserver logs every change using structured logging.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates an observer that writes to logger, or the
// default logger when nil.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnChange implements Observer.
func (lo *LoggingObserver) OnChange(c Change) {
	lo.logger.Info("data_changed",
		"change_id", c.ID,
		"address", c.Address,
		"table", c.Table,
		"kind", c.Kind,
		"count", c.Count,
		"origin", c.Origin,
	)
}
