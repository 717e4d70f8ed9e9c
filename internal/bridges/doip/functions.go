package doip

import (
	"strconv"
	"strings"
)

// Function identifies a Teletask function class. Every addressable
// entity on the bus belongs to exactly one class; the class selects the
// payload interpretation for both commands and event reports.
type Function int

// Function classes understood by the central unit.
const (
	FunctionRelay       Function = 1
	FunctionDimmer      Function = 2
	FunctionProcess     Function = 3
	FunctionMotor       Function = 6
	FunctionLocalMood   Function = 8
	FunctionGeneralMood Function = 10
	FunctionRegime      Function = 14
	FunctionFlag        Function = 15
	FunctionSensor      Function = 20
	FunctionAudio       Function = 31
	FunctionTPKey       Function = 52
	FunctionService     Function = 53
	FunctionMessage     Function = 54
	FunctionCondition   Function = 60
)

// FunctionDef describes a function class and how the bridge treats it.
type FunctionDef struct {
	// Tag is the numeric class identifier used on the wire.
	Tag Function

	// Name is the canonical lower-case name used in topics and logs.
	Name string

	// Feedback marks classes the bridge registers for event reporting
	// at startup via a Log command.
	Feedback bool
}

// functionDefs is the authoritative list of known function classes.
var functionDefs = []FunctionDef{
	{Tag: FunctionRelay, Name: "relay", Feedback: true},
	{Tag: FunctionDimmer, Name: "dimmer", Feedback: true},
	{Tag: FunctionProcess, Name: "process"},
	{Tag: FunctionMotor, Name: "motor"},
	{Tag: FunctionLocalMood, Name: "local_mood", Feedback: true},
	{Tag: FunctionGeneralMood, Name: "general_mood", Feedback: true},
	{Tag: FunctionRegime, Name: "regime"},
	{Tag: FunctionFlag, Name: "flag", Feedback: true},
	{Tag: FunctionSensor, Name: "sensor"},
	{Tag: FunctionAudio, Name: "audio"},
	{Tag: FunctionTPKey, Name: "tp_key"},
	{Tag: FunctionService, Name: "service"},
	{Tag: FunctionMessage, Name: "message"},
	{Tag: FunctionCondition, Name: "condition"},
}

var (
	functionsByTag  map[Function]FunctionDef
	functionsByName map[string]FunctionDef
)

func init() {
	functionsByTag = make(map[Function]FunctionDef, len(functionDefs))
	functionsByName = make(map[string]FunctionDef, len(functionDefs))
	for _, def := range functionDefs {
		functionsByTag[def.Tag] = def
		functionsByName[def.Name] = def
	}
}

// LookupFunction returns the definition for a numeric class tag.
func LookupFunction(tag Function) (FunctionDef, bool) {
	def, ok := functionsByTag[tag]
	return def, ok
}

// FunctionFromName resolves a canonical name (case-insensitive) to its
// class tag.
func FunctionFromName(name string) (Function, bool) {
	def, ok := functionsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, false
	}
	return def.Tag, true
}

// FeedbackFunctions returns the classes that support event reporting,
// in registration order.
func FeedbackFunctions() []Function {
	tags := make([]Function, 0, len(functionDefs))
	for _, def := range functionDefs {
		if def.Feedback {
			tags = append(tags, def.Tag)
		}
	}
	return tags
}

// String returns the canonical name of the function class, or the
// numeric tag for unknown classes.
func (f Function) String() string {
	if def, ok := functionsByTag[f]; ok {
		return def.Name
	}
	return "function(" + strconv.Itoa(int(f)) + ")"
}

// IsKnown reports whether the tag belongs to a known function class.
func (f Function) IsKnown() bool {
	_, ok := functionsByTag[f]
	return ok
}
