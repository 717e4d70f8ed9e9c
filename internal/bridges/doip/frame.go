package doip

import (
	"bytes"
	"fmt"
	"strconv"
)

// Event is a decoded state report from the central unit.
type Event struct {
	// Function is the class tag reported in the frame. It may be a tag
	// the bridge does not know; routing decides what to do with it.
	Function Function

	// Address is the bus address the report concerns.
	Address int

	// State is the raw reported value (0-255 for most classes).
	State int

	// Raw holds the nine fields of the report run as received, for
	// diagnostics.
	Raw [eventRunLength]int
}

// String describes the event for logs.
func (e Event) String() string {
	return fmt.Sprintf("%s/%d=%d", e.Function, e.Address, e.State)
}

// Event report runs are nine comma-separated decimal fields beginning
// with the start marker, the group command byte and the event report
// command byte. Field offsets within a run:
const (
	eventRunLength    = 9
	eventFunctionIdx  = 4
	eventAddressIdx   = 6
	eventStateIdx     = 8
	groupCommandField = 9
)

// maxPendingBytes bounds the scanner's carry-over buffer. A stream
// that never produces a complete run past this size is desynchronized;
// the oldest bytes are discarded.
const maxPendingBytes = 4096

// FrameScanner extracts event reports from the inbound byte stream.
//
// The central unit writes events as a continuous comma-separated ASCII
// stream with no frame delimiters, and TCP reads may split a run at
// any byte. The scanner keeps unconsumed bytes between pushes so runs
// spanning chunk boundaries are recovered intact.
//
// Not safe for concurrent use; the receive loop is the only caller.
type FrameScanner struct {
	pending []byte
	dropped uint64
}

// NewFrameScanner returns a scanner with an empty carry-over buffer.
func NewFrameScanner() *FrameScanner {
	return &FrameScanner{}
}

// token is a decimal field with its byte offset in the working buffer.
type token struct {
	value  int
	valid  bool
	offset int
}

// Push appends a chunk from the socket and returns all complete event
// reports now available, in stream order. Fields that do not form a
// valid run are skipped; bytes that may still complete a run are kept
// for the next push.
func (s *FrameScanner) Push(chunk []byte) []Event {
	if len(chunk) == 0 {
		return nil
	}
	s.pending = append(s.pending, chunk...)

	tokens, tail := tokenize(s.pending)

	var events []Event
	retained := -1

	i := 0
	for i < len(tokens) {
		if !isRunHeader(tokens, i) {
			// A partial header at the end of the buffer may complete
			// on the next push; keep it.
			if len(tokens)-i < 3 && isHeaderPrefix(tokens, i) {
				retained = tokens[i].offset
				break
			}
			i++
			continue
		}
		if i+eventRunLength > len(tokens) {
			// Incomplete run at the end of the buffer; keep it.
			retained = tokens[i].offset
			break
		}
		event, ok := decodeRun(tokens[i : i+eventRunLength])
		if !ok {
			// Malformed run: resume scanning inside it rather than
			// discarding fields that may start the next run.
			i++
			continue
		}
		events = append(events, event)
		i += eventRunLength
	}

	switch {
	case retained >= 0:
		s.pending = append(s.pending[:0], s.pending[retained:]...)
	case tail >= 0:
		s.pending = append(s.pending[:0], s.pending[tail:]...)
	default:
		s.pending = s.pending[:0]
	}

	if len(s.pending) > maxPendingBytes {
		s.dropped += uint64(len(s.pending) - maxPendingBytes)
		s.pending = append(s.pending[:0], s.pending[len(s.pending)-maxPendingBytes:]...)
	}

	return events
}

// PendingBytes returns the size of the carry-over buffer.
func (s *FrameScanner) PendingBytes() int {
	return len(s.pending)
}

// DroppedBytes returns the total bytes discarded due to buffer overflow.
func (s *FrameScanner) DroppedBytes() uint64 {
	return s.dropped
}

// tokenize splits the buffer into comma-terminated decimal tokens.
// The returned tail is the byte offset of a trailing token that has no
// terminating comma yet, or -1 when the buffer ends on a comma.
func tokenize(buf []byte) ([]token, int) {
	var tokens []token
	start := 0
	for {
		rel := bytes.IndexByte(buf[start:], ',')
		if rel < 0 {
			break
		}
		end := start + rel
		tokens = append(tokens, parseToken(buf[start:end], start))
		start = end + 1
	}
	if start >= len(buf) {
		return tokens, -1
	}
	return tokens, start
}

func parseToken(field []byte, offset int) token {
	value, err := strconv.Atoi(string(bytes.TrimSpace(field)))
	if err != nil {
		return token{offset: offset}
	}
	return token{value: value, valid: true, offset: offset}
}

// isRunHeader reports whether three consecutive tokens form the event
// report header: start marker, group command, event report command.
func isRunHeader(tokens []token, i int) bool {
	if i+3 > len(tokens) {
		return false
	}
	return tokens[i].valid && tokens[i].value == startMarker &&
		tokens[i+1].valid && tokens[i+1].value == groupCommandField &&
		tokens[i+2].valid && tokens[i+2].value == eventReportCommand
}

// isHeaderPrefix reports whether the tokens from i to the end of the
// buffer match the beginning of a run header.
func isHeaderPrefix(tokens []token, i int) bool {
	header := [...]int{startMarker, groupCommandField, eventReportCommand}
	for j := 0; i+j < len(tokens); j++ {
		if j >= len(header) || !tokens[i+j].valid || tokens[i+j].value != header[j] {
			return false
		}
	}
	return i < len(tokens)
}

// decodeRun converts nine header-matched tokens into an Event. It
// fails when any field inside the run is non-numeric.
func decodeRun(run []token) (Event, bool) {
	var event Event
	for i, t := range run {
		if !t.valid {
			return Event{}, false
		}
		event.Raw[i] = t.value
	}
	event.Function = Function(event.Raw[eventFunctionIdx])
	event.Address = event.Raw[eventAddressIdx]
	event.State = event.Raw[eventStateIdx]
	return event, true
}

// ScanEvents decodes all complete event reports from a standalone
// buffer. Convenience wrapper for callers that already hold the full
// stream.
func ScanEvents(data []byte) []Event {
	return NewFrameScanner().Push(data)
}
