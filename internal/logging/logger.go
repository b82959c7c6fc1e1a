// Package logging builds the service-wide zap logger. Components receive the
// one instance wired at startup; request handlers derive per-request loggers
// from it with WithRequestID.
package logging

import (
	"go.uber.org/zap"
)

// NewLogger returns a production logger tagged with the service name so
// aggregated output can be filtered per deployment.
func NewLogger(serviceName string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	return config.Build()
}

// WithRequestID derives a request-scoped logger carrying the chi middleware
// request id, correlating API error logs with the X-Request-Id header.
// An empty id leaves the logger untouched.
func WithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(zap.String("request_id", requestID))
}
