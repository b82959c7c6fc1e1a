package logging_test

import (
	"testing"

	"github.com/voltwise/prepaid-meter-service/internal/logging"
	"go.uber.org/zap"
)

func TestWithRequestID_EmptyLeavesLoggerUntouched(t *testing.T) {
	logger := zap.NewNop()

	if got := logging.WithRequestID(logger, ""); got != logger {
		t.Error("Expected the same logger back for an empty request id")
	}
	if got := logging.WithRequestID(logger, "req-1"); got == logger {
		t.Error("Expected a derived logger for a non-empty request id")
	}
}
