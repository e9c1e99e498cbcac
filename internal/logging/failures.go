package logging

import (
	"go.uber.org/zap"

	"github.com/memora/memora-load/internal/classify"
)

// Failure describes one failed request of a virtual user.
type Failure struct {
	User    string
	Class   string
	Task    string
	Request string
	Outcome classify.Outcome
}

// FailureLogger writes hard failures as structured warnings. Rate-limited
// responses are logged at debug.
type FailureLogger struct {
	logger *zap.Logger
}

func NewFailureLogger(logger *zap.Logger) *FailureLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureLogger{logger: logger.Named("failures")}
}

func (l *FailureLogger) LogFailure(f Failure) {
	fields := []zap.Field{
		zap.String("user", f.User),
		zap.String("class", f.Class),
		zap.String("request", f.Request),
		zap.Int("status", f.Outcome.Status),
	}
	if f.Task != "" {
		fields = append(fields, zap.String("task", f.Task))
	}

	switch f.Outcome.Class {
	case classify.SoftFailure:
		l.logger.Debug("request rate limited", fields...)
	case classify.HardFailure:
		fields = append(fields, zap.String("kind", string(f.Outcome.Kind)), zap.Error(f.Outcome.Err))
		l.logger.Warn("request failed", fields...)
	}
}
