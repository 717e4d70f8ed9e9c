package doip

import "testing"

func TestFunctionFromName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Function
		ok    bool
	}{
		{"relay", "relay", FunctionRelay, true},
		{"dimmer", "dimmer", FunctionDimmer, true},
		{"case insensitive", "RELAY", FunctionRelay, true},
		{"surrounding whitespace", " flag ", FunctionFlag, true},
		{"local mood", "local_mood", FunctionLocalMood, true},
		{"unknown", "teleporter", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FunctionFromName(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("FunctionFromName(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFunctionString(t *testing.T) {
	if got := FunctionRelay.String(); got != "relay" {
		t.Errorf("FunctionRelay.String() = %q, want relay", got)
	}
	if got := Function(99).String(); got != "function(99)" {
		t.Errorf("Function(99).String() = %q, want function(99)", got)
	}
}

func TestFeedbackFunctions(t *testing.T) {
	want := map[Function]bool{
		FunctionRelay:       true,
		FunctionDimmer:      true,
		FunctionLocalMood:   true,
		FunctionGeneralMood: true,
		FunctionFlag:        true,
	}

	got := FeedbackFunctions()
	if len(got) != len(want) {
		t.Fatalf("FeedbackFunctions() returned %d classes, want %d", len(got), len(want))
	}
	for _, f := range got {
		if !want[f] {
			t.Errorf("unexpected feedback class %s", f)
		}
	}
}

func TestLookupFunction(t *testing.T) {
	def, ok := LookupFunction(FunctionSensor)
	if !ok || def.Name != "sensor" {
		t.Errorf("LookupFunction(sensor) = (%+v, %v)", def, ok)
	}
	if _, ok := LookupFunction(Function(200)); ok {
		t.Error("LookupFunction(200) should not resolve")
	}
	if FunctionRelay.IsKnown() != true || Function(200).IsKnown() {
		t.Error("IsKnown misclassified a tag")
	}
}
