package ecugate

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/tkivisto/ecugate/pkg/api"
	"github.com/tkivisto/ecugate/pkg/messages"
)

type idleState struct{ api.BaseState }

func (idleState) Name() string { return "idle" }

type busyState struct {
	api.BaseState
	entered atomic.Int64
}

func (s *busyState) Name() string { return "busy" }

func (s *busyState) OnEnter(ctx any, m api.Machine) {
	s.entered.Add(1)
	// Return to idle so the next message can trigger again.
	m.TriggerEvent("done", nil)
}

// hookedState overrides a BaseState hook using the re-exported
// MachineAPI alias; the override must still satisfy State.
type hookedState struct{ api.BaseState }

func (hookedState) Name() string { return "hooked" }

func (hookedState) OnEnter(ctx any, m MachineAPI) {}

var _ State = hookedState{}

func TestHookSignaturesUseMachineInterface(t *testing.T) {
	m := NewMachine()
	if !m.AddState("hooked", hookedState{}) {
		t.Fatalf("state with MachineAPI-typed hook not accepted")
	}
	m.SetInitialState("hooked")
	if !m.Start() {
		t.Fatalf("machine failed to start")
	}
	m.Stop()
}

func waitUntil(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRuntime_MessagesDriveMachine(t *testing.T) {
	// One worker keeps the trigger sequence deterministic: each message
	// drives idle->busy->idle before the next is processed.
	metrics := &BasicMetrics{}
	rt := NewRuntime(1, metrics)

	busy := &busyState{}
	rt.Machine.AddState("idle", idleState{})
	rt.Machine.AddState("busy", busy)
	rt.Machine.AddTransition("idle", "work", "busy", nil)
	rt.Machine.AddTransition("busy", "done", "idle", nil)
	rt.Machine.SetInitialState("idle")

	rt.SetProcessor(func(msg Message) {
		rt.Machine.TriggerEvent("work", msg)
	})

	rt.Start()
	defer rt.Stop()

	if !rt.IsRunning() {
		t.Fatalf("runtime should be running")
	}
	if rt.Machine.CurrentState() != "idle" {
		t.Fatalf("expected idle, got %q", rt.Machine.CurrentState())
	}

	const n = 10
	for i := 0; i < n; i++ {
		rt.Queue.Enqueue(messages.NewData("", "payload"))
	}

	waitUntil(t, func() bool { return busy.entered.Load() == n }, "all messages to drive the machine")
	waitUntil(t, func() bool { return rt.Machine.CurrentState() == "idle" }, "machine back in idle")

	snap := metrics.Snapshot()
	if snap.MessagesProcessed != n {
		t.Fatalf("expected %d processed, got %d", n, snap.MessagesProcessed)
	}
	// Each message produced idle->busy and busy->idle.
	if snap.Transitions != 2*n {
		t.Fatalf("expected %d transitions, got %d", 2*n, snap.Transitions)
	}
}

func TestRuntime_StopDrainsQueue(t *testing.T) {
	var processed atomic.Int64
	rt := NewRuntime(1, nil)
	rt.SetProcessor(func(msg Message) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
	})

	rt.Start()
	const n = 50
	for i := 0; i < n; i++ {
		rt.Queue.Enqueue(messages.NewData("", "payload"))
	}
	rt.Stop()

	if got := processed.Load(); got != n {
		t.Fatalf("expected queue drained on stop, processed %d of %d", got, n)
	}
	if rt.IsRunning() {
		t.Fatalf("runtime still running after Stop")
	}
}

func TestRuntime_StartStopIdempotent(t *testing.T) {
	rt := NewRuntime(1, nil)
	rt.Machine.AddState("idle", idleState{})
	rt.Machine.SetInitialState("idle")

	rt.Start()
	rt.Start()
	rt.Stop()
	rt.Stop()

	if rt.Machine.IsRunning() {
		t.Fatalf("machine still running after Stop")
	}
}
