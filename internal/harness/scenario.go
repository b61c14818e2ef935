package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of list operations with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Key is the Redis key the scenario runs on. It is deleted before the
	// scenario starts.
	Key string `yaml:"key"`

	// Initial is the list content before the first step.
	Initial []string `yaml:"initial,omitempty"`

	// Steps run in order against one adapter instance.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one list operation.
type Step struct {
	// Op is the operation name, e.g. "insert_all".
	Op string `yaml:"op"`

	// Index is required by positional operations.
	Index *int `yaml:"index,omitempty"`

	// Value is the single argument of value operations.
	Value *string `yaml:"value,omitempty"`

	// Values are the arguments of bulk operations.
	Values []string `yaml:"values,omitempty"`

	// Expect validates the step's outcome. If nil the step must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes a step's expected outcome.
type Expect struct {
	// Result is compared with the operation's return value when set.
	Result any `yaml:"result,omitempty"`

	// Error is the expected error kind, e.g. "out_of_range". Empty means the
	// step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertModCount      = "mod_count"
)

// Assertion validates the trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Op is used by trace_contains and trace_count.
	Op string `yaml:"op,omitempty"`

	// Ops is used by trace_order.
	Ops []string `yaml:"ops,omitempty"`

	// Count is used by trace_count and mod_count.
	Count int64 `yaml:"count,omitempty"`

	// Values is used by final_state.
	Values []string `yaml:"values,omitempty"`
}

// argKind is the argument shape of an operation.
type argKind int

const (
	argNone argKind = iota
	argIndex
	argValue
	argValues
	argIndexValue
	argIndexValues
)

// ops lists the supported step operations with the arguments they take.
var ops = map[string]argKind{
	"len":           argNone,
	"is_empty":      argNone,
	"get":           argIndex,
	"set":           argIndexValue,
	"add":           argValue,
	"add_first":     argValue,
	"add_last":      argValue,
	"add_all":       argValues,
	"insert":        argIndexValue,
	"insert_all":    argIndexValues,
	"remove_at":     argIndex,
	"remove_first":  argNone,
	"remove_last":   argNone,
	"remove":        argValue,
	"remove_all":    argValues,
	"index_of":      argValue,
	"last_index_of": argValue,
	"contains":      argValue,
	"contains_all":  argValues,
	"clear":         argNone,
	"sort":          argNone,
	"sort_native":   argNone,
	"slice":         argNone,
	"iterate":       argNone,
}

// Error kinds usable in Expect.Error.
var errorKinds = map[string]bool{
	KindOutOfRange:    true,
	KindNoSuchElement: true,
	KindWatchTimeout:  true,
	KindConcurrentMod: true,
	KindError:         true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file cannot be read, parsed, or is invalid.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario from YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Key == "" {
		return fmt.Errorf("key is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step *Step) error {
	kind, ok := ops[step.Op]
	if !ok {
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	needIndex := kind == argIndex || kind == argIndexValue || kind == argIndexValues
	needValue := kind == argValue || kind == argIndexValue
	needValues := kind == argValues || kind == argIndexValues

	if needIndex != (step.Index != nil) {
		return fmt.Errorf("steps[%d]: %s %s index", i, step.Op, requires(needIndex))
	}
	if needValue != (step.Value != nil) {
		return fmt.Errorf("steps[%d]: %s %s value", i, step.Op, requires(needValue))
	}
	if !needValues && len(step.Values) > 0 {
		return fmt.Errorf("steps[%d]: %s takes no values", i, step.Op)
	}
	if step.Expect != nil && step.Expect.Error != "" && !errorKinds[step.Expect.Error] {
		return fmt.Errorf("steps[%d].expect: unknown error kind %q", i, step.Expect.Error)
	}
	return nil
}

func requires(need bool) string {
	if need {
		return "requires"
	}
	return "takes no"
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		// An empty values list asserts an empty list.
	case AssertModCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for mod_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
