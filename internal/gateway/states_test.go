package gateway

import (
	"testing"

	"go.uber.org/zap"

	"github.com/tkivisto/ecugate/pkg/fsm"
)

func newLifecycleMachine(t *testing.T) *fsm.Machine {
	t.Helper()
	m := fsm.New()
	configureMachine(m, zap.NewNop())
	if !m.Start() {
		t.Fatalf("machine failed to start")
	}
	t.Cleanup(m.Stop)
	return m
}

func TestLifecycle_ReadyPath(t *testing.T) {
	m := newLifecycleMachine(t)

	if m.CurrentState() != "init" {
		t.Fatalf("expected init, got %q", m.CurrentState())
	}
	if !m.TriggerEvent("ready", nil) {
		t.Fatalf("ready event not accepted")
	}
	if m.CurrentState() != "active" {
		t.Fatalf("expected active, got %q", m.CurrentState())
	}
}

func TestLifecycle_FaultRequiresReason(t *testing.T) {
	m := newLifecycleMachine(t)
	m.TriggerEvent("ready", nil)

	// No reason, wrong type, empty string: all rejected by the guard.
	for _, payload := range []any{nil, 42, ""} {
		if m.TriggerEvent("fault", payload) {
			t.Fatalf("fault with payload %v should be ignored", payload)
		}
		if m.CurrentState() != "active" {
			t.Fatalf("machine left active on rejected fault")
		}
	}

	if !m.TriggerEvent("fault", "sensor offline") {
		t.Fatalf("fault with reason not accepted")
	}
	if m.CurrentState() != "error" {
		t.Fatalf("expected error, got %q", m.CurrentState())
	}
}

func TestLifecycle_RecoverAndReset(t *testing.T) {
	m := newLifecycleMachine(t)
	m.TriggerEvent("ready", nil)
	m.TriggerEvent("fault", "sensor offline")

	if !m.TriggerEvent("recover", nil) {
		t.Fatalf("recover not accepted")
	}
	if m.CurrentState() != "active" {
		t.Fatalf("expected active after recover, got %q", m.CurrentState())
	}

	m.TriggerEvent("fault", "sensor offline again")
	if !m.TriggerEvent("reset", nil) {
		t.Fatalf("reset not accepted")
	}
	if m.CurrentState() != "init" {
		t.Fatalf("expected init after reset, got %q", m.CurrentState())
	}
}

func TestLifecycle_HeartbeatConsumedInActive(t *testing.T) {
	m := newLifecycleMachine(t)
	m.TriggerEvent("ready", nil)

	if !m.TriggerEvent("heartbeat", nil) {
		t.Fatalf("heartbeat should be handled by the active state")
	}
	if m.CurrentState() != "active" {
		t.Fatalf("heartbeat must not move the machine, got %q", m.CurrentState())
	}

	// Outside active nobody handles it.
	m.TriggerEvent("fault", "sensor offline")
	if m.TriggerEvent("heartbeat", nil) {
		t.Fatalf("heartbeat should be ignored in error state")
	}
}
