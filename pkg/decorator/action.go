// Package decorator wraps exposed operations with action logging.
package decorator

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/metrics"
)

const (
	ResultOK    = "OK"
	ResultError = "ERROR"
)

// ActionLogger records one log line and one duration sample per action.
type ActionLogger struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	verbose bool
}

// NewActionLogger creates an ActionLogger. With verbose set the call
// arguments are logged as well.
func NewActionLogger(logger *slog.Logger, m *metrics.Metrics, verbose bool) *ActionLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionLogger{logger: logger.With("component", "actions"), metrics: m, verbose: verbose}
}

// Action runs fn as the action name. args are key/value pairs, logged only
// in verbose mode. The result and error of fn are returned unchanged.
func Action[T any](
	ctx context.Context,
	a *ActionLogger,
	name string,
	args []any,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	if a == nil {
		return fn(ctx)
	}
	start := time.Now()
	out, err := fn(ctx)
	elapsed := time.Since(start)
	a.metrics.ObserveAction(name, elapsed, err)

	attrs := []any{"action", name, "elapsed_ms", elapsed.Milliseconds()}
	if a.verbose {
		attrs = append(attrs, args...)
	}
	if err != nil {
		attrs = append(attrs,
			"result", ResultError,
			"error_type", domain.ErrorType(err),
			"error_message", err.Error(),
		)
		a.logger.ErrorContext(ctx, "action", attrs...)
		return out, err
	}
	attrs = append(attrs, "result", ResultOK)
	a.logger.InfoContext(ctx, "action", attrs...)
	return out, nil
}
