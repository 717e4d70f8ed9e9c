package doip

import (
	"testing"
)

func TestScanEvents(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []Event
	}{
		{
			name: "single relay event",
			data: "2,9,16,1,1,0,3,0,255,",
			want: []Event{{Function: FunctionRelay, Address: 3, State: 255}},
		},
		{
			name: "dimmer event",
			data: "2,9,16,1,2,0,7,0,50,",
			want: []Event{{Function: FunctionDimmer, Address: 7, State: 50}},
		},
		{
			name: "two consecutive events",
			data: "2,9,16,1,1,0,3,0,255,2,9,16,1,1,0,4,0,0,",
			want: []Event{
				{Function: FunctionRelay, Address: 3, State: 255},
				{Function: FunctionRelay, Address: 4, State: 0},
			},
		},
		{
			name: "leading noise before event",
			data: "10,3,99,2,9,16,1,15,0,9,0,1,",
			want: []Event{{Function: FunctionFlag, Address: 9, State: 1}},
		},
		{
			name: "unknown function tag still decoded",
			data: "2,9,16,1,77,0,2,0,5,",
			want: []Event{{Function: Function(77), Address: 2, State: 5}},
		},
		{
			name: "non-numeric field inside run skips it",
			data: "2,9,16,1,x,0,3,0,255,",
			want: nil,
		},
		{
			name: "no header",
			data: "1,2,3,4,5,6,7,8,9,",
			want: nil,
		},
		{
			name: "empty input",
			data: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScanEvents([]byte(tt.data))
			if len(got) != len(tt.want) {
				t.Fatalf("ScanEvents() returned %d events, want %d: %v", len(got), len(tt.want), got)
			}
			for i, want := range tt.want {
				if got[i].Function != want.Function || got[i].Address != want.Address || got[i].State != want.State {
					t.Errorf("event[%d] = %v, want %v", i, got[i], want)
				}
			}
		})
	}
}

// TestFrameScannerChunkBoundaries feeds one event split at every
// possible byte position and expects the scanner to recover it intact.
func TestFrameScannerChunkBoundaries(t *testing.T) {
	data := []byte("2,9,16,1,1,0,3,0,255,")

	for split := 1; split < len(data); split++ {
		scanner := NewFrameScanner()

		events := scanner.Push(data[:split])
		events = append(events, scanner.Push(data[split:])...)

		if len(events) != 1 {
			t.Fatalf("split at %d: got %d events, want 1", split, len(events))
		}
		e := events[0]
		if e.Function != FunctionRelay || e.Address != 3 || e.State != 255 {
			t.Errorf("split at %d: event = %v", split, e)
		}
	}
}

func TestFrameScannerIncompleteRunRetained(t *testing.T) {
	scanner := NewFrameScanner()

	if events := scanner.Push([]byte("2,9,16,1,1,")); len(events) != 0 {
		t.Fatalf("incomplete run produced %d events", len(events))
	}
	if scanner.PendingBytes() == 0 {
		t.Fatal("incomplete run was not retained")
	}

	events := scanner.Push([]byte("0,3,0,255,"))
	if len(events) != 1 {
		t.Fatalf("completed run produced %d events, want 1", len(events))
	}
	if events[0].Address != 3 || events[0].State != 255 {
		t.Errorf("event = %v", events[0])
	}
}

func TestFrameScannerInterleavedPushes(t *testing.T) {
	scanner := NewFrameScanner()

	var events []Event
	chunks := []string{
		"2,9,16,1,1,0,3,0,255,2,9,",
		"16,1,2,0,7,0,",
		"128,garbage,2,9,16,1,15,0,1,0,0,",
	}
	for _, chunk := range chunks {
		events = append(events, scanner.Push([]byte(chunk))...)
	}

	want := []Event{
		{Function: FunctionRelay, Address: 3, State: 255},
		{Function: FunctionDimmer, Address: 7, State: 128},
		{Function: FunctionFlag, Address: 1, State: 0},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(events), len(want), events)
	}
	for i, w := range want {
		if events[i].Function != w.Function || events[i].Address != w.Address || events[i].State != w.State {
			t.Errorf("event[%d] = %v, want %v", i, events[i], w)
		}
	}
}

func TestFrameScannerOverflowDropsOldest(t *testing.T) {
	scanner := NewFrameScanner()

	// Garbage with no commas accumulates in the carry-over buffer.
	junk := make([]byte, maxPendingBytes+512)
	for i := range junk {
		junk[i] = 'x'
	}
	scanner.Push(junk)

	if scanner.PendingBytes() > maxPendingBytes {
		t.Errorf("pending = %d, want <= %d", scanner.PendingBytes(), maxPendingBytes)
	}
	if scanner.DroppedBytes() == 0 {
		t.Error("expected dropped bytes after overflow")
	}
}

func TestEventRawFields(t *testing.T) {
	events := ScanEvents([]byte("2,9,16,1,1,0,3,0,255,"))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	want := [eventRunLength]int{2, 9, 16, 1, 1, 0, 3, 0, 255}
	if events[0].Raw != want {
		t.Errorf("Raw = %v, want %v", events[0].Raw, want)
	}
}
