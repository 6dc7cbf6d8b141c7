package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario for one synchronized resource.
// Steps run in order against a fresh graph and a fresh working directory;
// assertions are then checked against the trace and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the graph: "sqlite" (default) or "badger" (in memory).
	Backend string `yaml:"backend,omitempty"`

	// Resource describes the synchronized resource under test.
	Resource ResourceSpec `yaml:"resource"`

	// Setup prepares the environment before the flow. Setup steps are not
	// traced and must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the traced steps with optional expectations.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ResourceSpec configures the resource a scenario exercises.
type ResourceSpec struct {
	// Property is the property key on the reference node.
	Property string `yaml:"property"`

	// File is the mirror path, relative to the scenario working directory.
	File string `yaml:"file"`

	// LockAware enables lock file cleanup after mutations.
	LockAware bool `yaml:"lock_aware,omitempty"`

	// Normalize is "", "nfc" or "nfd".
	Normalize string `yaml:"normalize,omitempty"`
}

// Step is a single operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Data is the payload for store and write_file.
	Data *string `yaml:"data,omitempty"`

	// Expect specifies the expected completion.
	// If nil, no validation is performed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Outcome is "ok" or "error".
	Outcome string `yaml:"outcome"`

	// Result contains expected result fields (subset match).
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is the operation name (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Args are expected invocation args (trace_contains, subset match).
	Args map[string]any `yaml:"args,omitempty"`

	// Ops is the expected operation order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect holds expected final state fields (final_state). A null value
	// asserts absence.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpStore       = "store"
	OpRetrieve    = "retrieve"
	OpExists      = "exists"
	OpDelete      = "delete"
	OpRefresh     = "refresh"
	OpWriteFile   = "write_file"
	OpRemoveFile  = "remove_file"
	OpWriteLock   = "write_lock"
	OpFailCommits = "fail_commits"
	OpHeal        = "heal"
)

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Final state keys.
const (
	StateProperty = "property"
	StateFile     = "file"
	StateLock     = "lock"
)

var validOps = map[string]bool{
	OpStore:       true,
	OpRetrieve:    true,
	OpExists:      true,
	OpDelete:      true,
	OpRefresh:     true,
	OpWriteFile:   true,
	OpRemoveFile:  true,
	OpWriteLock:   true,
	OpFailCommits: true,
	OpHeal:        true,
}

var validStateKeys = map[string]bool{
	StateProperty: true,
	StateFile:     true,
	StateLock:     true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
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

	switch s.Backend {
	case "", "sqlite", "badger":
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	if s.Resource.Property == "" {
		return fmt.Errorf("resource.property is required")
	}
	if s.Resource.File == "" {
		return fmt.Errorf("resource.file is required")
	}
	switch s.Resource.Normalize {
	case "", "nfc", "nfd":
	default:
		return fmt.Errorf("resource.normalize must be nfc or nfd, got %q", s.Resource.Normalize)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
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

func validateStep(where string, step Step) error {
	if step.Op == "" {
		return fmt.Errorf("%s: op is required", where)
	}
	if !validOps[step.Op] {
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}

	needsData := step.Op == OpStore || step.Op == OpWriteFile
	if needsData && step.Data == nil {
		return fmt.Errorf("%s: data is required for %s", where, step.Op)
	}
	if !needsData && step.Data != nil {
		return fmt.Errorf("%s: data is not allowed for %s", where, step.Op)
	}

	if step.Expect != nil {
		switch step.Expect.Outcome {
		case OutcomeOK, OutcomeError:
		case "":
			return fmt.Errorf("%s.expect: outcome is required", where)
		default:
			return fmt.Errorf("%s.expect: outcome must be ok or error, got %q", where, step.Expect.Outcome)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
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
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		for key := range a.Expect {
			if !validStateKeys[key] {
				return fmt.Errorf("assertions[%d]: unknown final_state key %q", index, key)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
