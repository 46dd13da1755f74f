package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StateSubmitted, false},
		{StateApproved, false},
		{StateManagerRejected, false},
		{StateFinanceApproved, false},
		{StateFinanceRejected, false},
		{StatePaymentProcessed, true},
		{StatePaymentNotProcessed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"draft", StateDraft, true},
		{"terminal", StatePaymentNotProcessed, true},
		{"unknown", State("paid"), false},
		{"upper case", State("DRAFT"), false},
		{"empty", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAction_Classification(t *testing.T) {
	tests := []struct {
		action    Action
		stage     Stage
		approval  bool
		rejection bool
	}{
		{ActionSubmit, StageSubmission, false, false},
		{ActionResubmit, StageSubmission, false, false},
		{ActionManagerApprove, StageManager, true, false},
		{ActionManagerReject, StageManager, false, true},
		{ActionFinanceApprove, StageFinance, true, false},
		{ActionFinanceReject, StageFinance, false, true},
		{ActionMarkPaid, StagePayment, false, false},
		{ActionMarkNotPaid, StagePayment, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			if !tt.action.IsValid() {
				t.Fatalf("%s should be valid", tt.action)
			}
			if got := tt.action.Stage(); got != tt.stage {
				t.Errorf("Stage() = %v, want %v", got, tt.stage)
			}
			if got := tt.action.IsApproval(); got != tt.approval {
				t.Errorf("IsApproval() = %v, want %v", got, tt.approval)
			}
			if got := tt.action.IsRejection(); got != tt.rejection {
				t.Errorf("IsRejection() = %v, want %v", got, tt.rejection)
			}
		})
	}

	if Action("archive").IsValid() {
		t.Error("unknown action should be invalid")
	}
}

func TestBuilder_ConfigureReturnsSameConfig(t *testing.T) {
	builder := NewBuilder()

	first := builder.Configure(StateDraft)
	second := builder.Configure(StateDraft)
	if first != second {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_PanicsOnInvalidStates(t *testing.T) {
	cases := map[string]func(){
		"configure": func() { NewBuilder().Configure(State("bogus")) },
		"build":     func() { NewBuilder().Build(State("bogus")) },
		"target":    func() { NewBuilder().Configure(StateDraft).Permit(ActionSubmit, State("bogus")) },
		"terminal":  func() { NewBuilder().Configure(StatePaymentProcessed).Permit(ActionResubmit, StateSubmitted) },
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("%s should panic", name)
				}
			}()
			fn()
		})
	}
}

func TestMachine_FireMovesState(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(ActionSubmit, StateSubmitted)
	machine := builder.Build(StateDraft)

	if !machine.CanFire(ActionSubmit) {
		t.Fatal("CanFire() should return true for permitted action")
	}
	if err := machine.Fire(context.Background(), ActionSubmit); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if machine.State() != StateSubmitted {
		t.Errorf("State() = %v, want %v", machine.State(), StateSubmitted)
	}
}

func TestMachine_FireRejectsUnknownEdge(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(ActionSubmit, StateSubmitted)
	machine := builder.Build(StateDraft)

	err := machine.Fire(context.Background(), ActionFinanceApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
	if machine.State() != StateDraft {
		t.Errorf("state changed on failed fire: %v", machine.State())
	}
}

func TestMachine_TargetDoesNotMove(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).Permit(ActionManagerApprove, StateApproved)
	machine := builder.Build(StateSubmitted)

	to, err := machine.Target(context.Background(), ActionManagerApprove)
	if err != nil {
		t.Fatalf("Target() error = %v", err)
	}
	if to != StateApproved {
		t.Errorf("Target() = %v, want %v", to, StateApproved)
	}
	if machine.State() != StateSubmitted {
		t.Errorf("Target() moved the machine to %v", machine.State())
	}
}

func TestMachine_GuardSelectsEdge(t *testing.T) {
	allow := false
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		PermitIf(ActionManagerApprove, StateApproved, func(ctx context.Context) bool { return allow })
	machine := builder.Build(StateSubmitted)

	err := machine.Fire(context.Background(), ActionManagerApprove)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want ErrGuardFailed", err)
	}

	allow = true
	if err := machine.Fire(context.Background(), ActionManagerApprove); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
}

func TestBuilder_BuildIsIsolated(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).Permit(ActionSubmit, StateSubmitted)
	machine := builder.Build(StateDraft)

	builder.Configure(StateDraft).Permit(ActionResubmit, StateSubmitted)

	if machine.CanFire(ActionResubmit) {
		t.Error("edges added after Build() must not leak into built machines")
	}
}

func TestMachine_PermittedActionsSorted(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateSubmitted).
		Permit(ActionManagerReject, StateManagerRejected).
		Permit(ActionManagerApprove, StateApproved)
	machine := builder.Build(StateSubmitted)

	got := machine.PermittedActions()
	if len(got) != 2 || got[0] != ActionManagerApprove || got[1] != ActionManagerReject {
		t.Errorf("PermittedActions() = %v", got)
	}

	empty := builder.Build(StatePaymentProcessed).PermittedActions()
	if len(empty) != 0 {
		t.Errorf("terminal state should have no actions, got %v", empty)
	}
}
