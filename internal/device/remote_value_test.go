package device

import (
	"errors"
	"sync"
	"testing"

	"github.com/greyfold/teletask-bridge/internal/bridges/doip"
)

// mockSender records submitted commands.
type mockSender struct {
	mu        sync.Mutex
	commands  []doip.Command
	submitErr error
}

func (m *mockSender) Submit(cmd doip.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.submitErr
	}
	m.commands = append(m.commands, cmd)
	return nil
}

func (m *mockSender) Commands() []doip.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]doip.Command, len(m.commands))
	copy(out, m.commands)
	return out
}

func TestRemoteValueApply(t *testing.T) {
	changes := 0
	v := NewSwitchValue(&mockSender{}, doip.FunctionRelay, 1, "test", false, func() { changes++ })

	// The first payload always counts as a change, even zero.
	if !v.Apply(0) {
		t.Error("first Apply(0) should report a change")
	}
	if changes != 1 {
		t.Fatalf("changes = %d, want 1", changes)
	}

	// Identical payload is a no-op.
	if v.Apply(0) {
		t.Error("repeated Apply(0) should not report a change")
	}
	if changes != 1 {
		t.Fatalf("changes = %d after repeat, want 1", changes)
	}

	if !v.Apply(255) {
		t.Error("Apply(255) after 0 should report a change")
	}
	if changes != 2 {
		t.Fatalf("changes = %d, want 2", changes)
	}
}

func TestSwitchValueSetIsOptimistic(t *testing.T) {
	sender := &mockSender{}
	changes := 0
	v := NewSwitchValue(sender, doip.FunctionRelay, 3, "test", false, func() { changes++ })

	if err := v.On(); err != nil {
		t.Fatalf("On() error = %v", err)
	}

	// Local state updated before any event comes back.
	if on, known := v.IsOn(); !known || !on {
		t.Errorf("IsOn() = (%v, %v), want (true, true)", on, known)
	}
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}

	commands := sender.Commands()
	if len(commands) != 1 {
		t.Fatalf("submitted %d commands, want 1", len(commands))
	}
	want := doip.NewSet(doip.FunctionRelay, 3, doip.SettingOn)
	if commands[0] != want {
		t.Errorf("command = %+v, want %+v", commands[0], want)
	}
}

func TestSwitchValueSetNotRolledBackOnFailure(t *testing.T) {
	sender := &mockSender{submitErr: doip.ErrNotRunning}
	v := NewSwitchValue(sender, doip.FunctionRelay, 3, "test", false, nil)

	if err := v.On(); !errors.Is(err, doip.ErrNotRunning) {
		t.Fatalf("On() error = %v, want ErrNotRunning", err)
	}

	// The optimistic update stands; the next sync resynchronizes.
	if on, known := v.IsOn(); !known || !on {
		t.Errorf("IsOn() after failed write = (%v, %v), want (true, true)", on, known)
	}
}

func TestSwitchValueInvert(t *testing.T) {
	sender := &mockSender{}
	v := NewSwitchValue(sender, doip.FunctionRelay, 2, "test", true, nil)

	if err := v.On(); err != nil {
		t.Fatalf("On() error = %v", err)
	}
	commands := sender.Commands()
	if commands[0].Setting != doip.SettingOff {
		t.Errorf("inverted On wrote %d, want %d", commands[0].Setting, doip.SettingOff)
	}
	if on, known := v.IsOn(); !known || !on {
		t.Errorf("IsOn() = (%v, %v), want (true, true)", on, known)
	}

	v.Apply(doip.SettingOn)
	if on, _ := v.IsOn(); on {
		t.Error("inverted value should read off for wire 255")
	}
}

func TestSwitchValueToggleLeavesLocalState(t *testing.T) {
	sender := &mockSender{}
	v := NewSwitchValue(sender, doip.FunctionRelay, 4, "test", false, nil)
	v.Apply(doip.SettingOff)

	if err := v.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	// Toggle defers to the central unit; local state is unchanged
	// until the event report arrives.
	if on, known := v.IsOn(); !known || on {
		t.Errorf("IsOn() after Toggle = (%v, %v), want (false, true)", on, known)
	}

	commands := sender.Commands()
	if len(commands) != 1 || commands[0].Setting != doip.SettingToggle {
		t.Fatalf("commands = %+v, want one toggle", commands)
	}
}

func TestScalingValueRange(t *testing.T) {
	sender := &mockSender{}
	v := NewScalingValue(sender, doip.FunctionDimmer, 5, "test", nil)

	for _, percent := range []int{-1, 101, 255} {
		if err := v.SetPercent(percent); !errors.Is(err, ErrIllegalValue) {
			t.Errorf("SetPercent(%d) error = %v, want ErrIllegalValue", percent, err)
		}
	}
	if len(sender.Commands()) != 0 {
		t.Fatal("illegal values must not reach the queue")
	}

	if err := v.SetPercent(60); err != nil {
		t.Fatalf("SetPercent(60) error = %v", err)
	}
	if got, known := v.Percent(); !known || got != 60 {
		t.Errorf("Percent() = (%d, %v), want (60, true)", got, known)
	}

	commands := sender.Commands()
	want := doip.NewSet(doip.FunctionDimmer, 5, 60)
	if len(commands) != 1 || commands[0] != want {
		t.Errorf("commands = %+v, want [%+v]", commands, want)
	}
}

func TestScalingValueClampsReportedOverrange(t *testing.T) {
	v := NewScalingValue(&mockSender{}, doip.FunctionDimmer, 5, "test", nil)
	v.Apply(255)
	if got, known := v.Percent(); !known || got != 100 {
		t.Errorf("Percent() = (%d, %v), want (100, true)", got, known)
	}
}

func TestRemoteValueNotInitialized(t *testing.T) {
	sender := &mockSender{}
	v := NewSwitchValue(sender, doip.FunctionRelay, 0, "test", false, nil)

	if v.Initialized() {
		t.Error("address 0 should not be initialized")
	}
	if err := v.On(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("On() error = %v, want ErrNotInitialized", err)
	}
	if err := v.RequestState(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RequestState() error = %v, want ErrNotInitialized", err)
	}
	if got := v.StateAddresses(); len(got) != 0 {
		t.Errorf("StateAddresses() = %v, want empty", got)
	}
}

func TestRemoteValueRequestState(t *testing.T) {
	sender := &mockSender{}
	v := NewSwitchValue(sender, doip.FunctionRelay, 9, "test", false, nil)

	if err := v.RequestState(); err != nil {
		t.Fatalf("RequestState() error = %v", err)
	}
	commands := sender.Commands()
	want := doip.NewGet(doip.FunctionRelay, 9)
	if len(commands) != 1 || commands[0] != want {
		t.Errorf("commands = %+v, want [%+v]", commands, want)
	}
}
