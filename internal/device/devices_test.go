package device

import (
	"errors"
	"testing"

	"github.com/greyfold/teletask-bridge/internal/bridges/doip"
)

func TestSwitchActions(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		want    doip.Command
		wantErr error
	}{
		{"turn on", TurnOn{}, doip.NewSet(doip.FunctionRelay, 7, doip.SettingOn), nil},
		{"turn off", TurnOff{}, doip.NewSet(doip.FunctionRelay, 7, doip.SettingOff), nil},
		{"toggle", Toggle{}, doip.NewSet(doip.FunctionRelay, 7, doip.SettingToggle), nil},
		{"set level unsupported", SetLevel{Percent: 50}, doip.Command{}, ErrUnsupportedAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			sw := NewSwitch(sender, SwitchOptions{Name: "hall", Address: 7})

			err := sw.Do(tt.action)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Do() error = %v, want %v", err, tt.wantErr)
				}
				if len(sender.Commands()) != 0 {
					t.Fatal("unsupported action must not reach the queue")
				}
				return
			}
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			commands := sender.Commands()
			if len(commands) != 1 || commands[0] != tt.want {
				t.Errorf("commands = %+v, want [%+v]", commands, tt.want)
			}
		})
	}
}

func TestLightActions(t *testing.T) {
	sender := &mockSender{}
	light := NewLight(sender, LightOptions{Name: "living", Address: 4, BrightnessAddress: 2})

	if !light.Dimmable() {
		t.Fatal("light with a brightness address should be dimmable")
	}

	if err := light.Do(TurnOn{}); err != nil {
		t.Fatalf("Do(TurnOn) error = %v", err)
	}
	if err := light.Do(SetLevel{Percent: 35}); err != nil {
		t.Fatalf("Do(SetLevel) error = %v", err)
	}

	commands := sender.Commands()
	want := []doip.Command{
		doip.NewSet(doip.FunctionRelay, 4, doip.SettingOn),
		doip.NewSet(doip.FunctionDimmer, 2, 35),
	}
	if len(commands) != len(want) {
		t.Fatalf("commands = %+v, want %+v", commands, want)
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Errorf("command[%d] = %+v, want %+v", i, commands[i], want[i])
		}
	}

	if level, known := light.Brightness(); !known || level != 35 {
		t.Errorf("Brightness() = (%d, %v), want (35, true)", level, known)
	}
}

func TestLightWithoutDimmer(t *testing.T) {
	sender := &mockSender{}
	light := NewLight(sender, LightOptions{Name: "cellar", Address: 9})

	if light.Dimmable() {
		t.Fatal("light without a brightness address should not be dimmable")
	}
	if err := light.Do(SetLevel{Percent: 50}); !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("Do(SetLevel) error = %v, want ErrUnsupportedAction", err)
	}
	if _, known := light.Brightness(); known {
		t.Error("Brightness() should be unknown without a dimmer")
	}
	if light.BrightnessReceiver() != nil {
		t.Error("BrightnessReceiver() should be nil without a dimmer")
	}
}

func TestDimmerActions(t *testing.T) {
	sender := &mockSender{}
	dimmer := NewDimmer(sender, DimmerOptions{Name: "spots", Address: 6})

	if err := dimmer.Do(TurnOn{}); err != nil {
		t.Fatalf("Do(TurnOn) error = %v", err)
	}
	if err := dimmer.Do(SetLevel{Percent: 20}); err != nil {
		t.Fatalf("Do(SetLevel) error = %v", err)
	}
	if err := dimmer.Do(TurnOff{}); err != nil {
		t.Fatalf("Do(TurnOff) error = %v", err)
	}
	if err := dimmer.Do(Toggle{}); !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("Do(Toggle) error = %v, want ErrUnsupportedAction", err)
	}

	commands := sender.Commands()
	want := []doip.Command{
		doip.NewSet(doip.FunctionDimmer, 6, 100),
		doip.NewSet(doip.FunctionDimmer, 6, 20),
		doip.NewSet(doip.FunctionDimmer, 6, 0),
	}
	if len(commands) != len(want) {
		t.Fatalf("commands = %+v, want %+v", commands, want)
	}
	for i := range want {
		if commands[i] != want[i] {
			t.Errorf("command[%d] = %+v, want %+v", i, commands[i], want[i])
		}
	}
}

func TestDeviceUpdateCallbacks(t *testing.T) {
	sender := &mockSender{}
	sw := NewSwitch(sender, SwitchOptions{Name: "hall", Address: 1})

	updates := 0
	sw.RegisterUpdateCallback(func() { updates++ })

	sw.ApplyRemoteState(255)
	sw.ApplyRemoteState(255)
	sw.ApplyRemoteState(0)

	if updates != 2 {
		t.Errorf("updates = %d, want 2 (repeat payload is a no-op)", updates)
	}
}

func TestLightBrightnessReceiverRoutesToDimmerValue(t *testing.T) {
	sender := &mockSender{}
	light := NewLight(sender, LightOptions{Name: "living", Address: 4, BrightnessAddress: 2})

	receiver := light.BrightnessReceiver()
	if receiver == nil {
		t.Fatal("BrightnessReceiver() = nil")
	}
	if receiver.Function() != doip.FunctionDimmer {
		t.Errorf("receiver function = %v, want dimmer", receiver.Function())
	}

	receiver.ApplyRemoteState(55)
	if level, known := light.Brightness(); !known || level != 55 {
		t.Errorf("Brightness() = (%d, %v), want (55, true)", level, known)
	}

	// The relay channel is untouched.
	if _, known := light.IsOn(); known {
		t.Error("relay state should still be unknown")
	}
}
