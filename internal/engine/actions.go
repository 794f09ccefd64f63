package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrServiceNotAllowed rejects restart requests for services outside the
// fixed allow-list.
var ErrServiceNotAllowed = errors.New("service not in restart allow-list")

// AllowedServices is the fixed set of services the execution trigger will
// act on. Anything else is rejected before any downstream call.
var AllowedServices = []string{"api-gateway", "primary-db", "cache"}

// Executor performs the actual restart. Implementations are external; the
// default simply logs the intent.
type Executor interface {
	Restart(ctx context.Context, service string) error
}

// Trigger validates and forwards restart requests.
type Trigger struct {
	exec   Executor
	logger *slog.Logger
}

// NewTrigger constructs a Trigger; exec may be nil for log-only operation.
func NewTrigger(exec Executor, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{exec: exec, logger: logger}
}

// Restart checks the allow-list, then delegates to the executor.
func (t *Trigger) Restart(ctx context.Context, service string) error {
	name := strings.ToLower(strings.TrimSpace(service))
	if !serviceAllowed(name) {
		return fmt.Errorf("%w: %q", ErrServiceNotAllowed, service)
	}

	t.logger.Info("restart requested", slog.String("service", name))
	if t.exec == nil {
		return nil
	}
	return t.exec.Restart(ctx, name)
}

func serviceAllowed(name string) bool {
	for _, allowed := range AllowedServices {
		if name == allowed {
			return true
		}
	}
	return false
}
