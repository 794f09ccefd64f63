package engine

import (
	"context"
	"errors"
	"testing"
)

type recordingExecutor struct {
	restarted []string
	err       error
}

func (r *recordingExecutor) Restart(_ context.Context, service string) error {
	r.restarted = append(r.restarted, service)
	return r.err
}

func TestTriggerRestartAllowList(t *testing.T) {
	tests := []struct {
		name    string
		service string
		allowed bool
	}{
		{"gateway allowed", "api-gateway", true},
		{"db allowed", "primary-db", true},
		{"cache allowed", "cache", true},
		{"case and whitespace normalized", "  Primary-DB ", true},
		{"unknown service rejected", "billing-svc", false},
		{"empty rejected", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &recordingExecutor{}
			trigger := NewTrigger(exec, nil)

			err := trigger.Restart(context.Background(), tt.service)
			if tt.allowed {
				if err != nil {
					t.Fatalf("Restart(%q): %v", tt.service, err)
				}
				if len(exec.restarted) != 1 {
					t.Fatalf("executor calls = %v", exec.restarted)
				}
				return
			}
			if !errors.Is(err, ErrServiceNotAllowed) {
				t.Fatalf("expected ErrServiceNotAllowed, got %v", err)
			}
			if len(exec.restarted) != 0 {
				t.Fatalf("rejected request reached the executor: %v", exec.restarted)
			}
		})
	}
}

func TestTriggerRestartNilExecutor(t *testing.T) {
	trigger := NewTrigger(nil, nil)
	if err := trigger.Restart(context.Background(), "cache"); err != nil {
		t.Fatalf("log-only restart: %v", err)
	}
}

func TestTriggerRestartExecutorFailure(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("orchestrator unreachable")}
	trigger := NewTrigger(exec, nil)
	if err := trigger.Restart(context.Background(), "cache"); err == nil {
		t.Fatal("expected executor error to propagate")
	}
}
