package gateway

import (
	"go.uber.org/zap"

	"github.com/tkivisto/ecugate/pkg/api"
	"github.com/tkivisto/ecugate/pkg/fsm"
)

// Gateway lifecycle states. The machine is wired as
//
//	init --(ready)--> active --(fault)--> error --(recover)--> active
//	                                      error --(reset)----> init
//
// with a guard on "fault" requiring a non-empty reason string, so a
// fault without diagnosis is ignored rather than flapping the gateway
// into error.

// initState is where the gateway boots: listeners are not yet
// accepting.
type initState struct {
	api.BaseState
	log *zap.Logger
}

func (s *initState) Name() string { return "init" }

func (s *initState) OnEnter(ctx any, m api.Machine) {
	s.log.Info("initializing")
}

func (s *initState) OnExit(m api.Machine) {
	s.log.Info("initialization complete")
}

// activeState is normal operation: frames flow from ingestion through
// the pool into the store.
type activeState struct {
	api.BaseState
	log *zap.Logger
}

func (s *activeState) Name() string { return "active" }

func (s *activeState) OnEnter(ctx any, m api.Machine) {
	s.log.Info("gateway active")
}

func (s *activeState) OnEvent(event string, payload any, m api.Machine) bool {
	switch event {
	case "heartbeat":
		// Consumed here: a heartbeat never causes a transition.
		s.log.Debug("heartbeat")
		return true
	default:
		return false
	}
}

// errorState is entered on a guarded fault; it logs the reason carried
// in the transition context.
type errorState struct {
	api.BaseState
	log *zap.Logger
}

func (s *errorState) Name() string { return "error" }

func (s *errorState) OnEnter(ctx any, m api.Machine) {
	reason := "unknown"
	if r, ok := ctx.(string); ok && r != "" {
		reason = r
	}
	s.log.Error("gateway entered error state", zap.String("reason", reason))
}

func (s *errorState) OnExit(m api.Machine) {
	s.log.Info("leaving error state")
}

// faultGuard admits a fault event only when it carries a non-empty
// reason string.
func faultGuard(payload any) bool {
	reason, ok := payload.(string)
	return ok && reason != ""
}

// configureMachine registers the lifecycle states and transitions on m.
func configureMachine(m *fsm.Machine, log *zap.Logger) {
	m.AddState("init", &initState{log: log.Named("init")})
	m.AddState("active", &activeState{log: log.Named("active")})
	m.AddState("error", &errorState{log: log.Named("error")})

	m.AddTransition("init", "ready", "active", nil)
	m.AddTransition("active", "fault", "error", faultGuard)
	m.AddTransition("error", "recover", "active", nil)
	m.AddTransition("error", "reset", "init", nil)

	m.SetInitialState("init")
}
