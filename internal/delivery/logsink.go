package delivery

import (
	"context"

	"go.uber.org/zap"

	"github.com/wxvisuals/warnmap/internal/alert"
)

// LogSink records deliveries without posting anywhere. Used when no
// webhook endpoint is configured, so rendered artifacts just accumulate
// in the output directory.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(_ context.Context, a alert.Alert, imagePath string) error {
	s.logger.Info("artifact ready, no webhook configured",
		zap.String("alert_id", a.ID),
		zap.String("image", imagePath))
	return nil
}
