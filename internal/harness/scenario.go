package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/settle/internal/account"
	"github.com/roach88/settle/internal/ledger"
	"github.com/roach88/settle/internal/parser"
)

// Scenario is a timed reconciliation test.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Steps run in order; at_ms must be non-decreasing.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the scheduler drains.
	Assertions []Assertion `yaml:"assertions"`

	// updates holds each step's decoded update (nil for checks).
	updates []*account.Update
}

// Step indexes an update or checks completeness at a point in virtual time.
// Exactly one of Update and ExpectComplete is set.
type Step struct {
	AtMs int64 `yaml:"at_ms"`

	// Update is the update in batch wire format.
	Update map[string]any `yaml:"update,omitempty"`

	// ExpectComplete checks ledger completeness at AtMs, after due
	// settlements have fired.
	ExpectComplete *bool `yaml:"expect_complete,omitempty"`
}

// Assertion validates the final trace or ledger.
type Assertion struct {
	// Type is one of event_count, event_order, final_state, complete,
	// top_by_category.
	Type string `yaml:"type"`

	// Kind and ID filter events (event_count). ID also selects the
	// account for final_state.
	Kind string `yaml:"kind,omitempty"`
	ID   string `yaml:"id,omitempty"`

	// Count is the expected number of matching events (event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected subsequence of "kind:id" pairs (event_order).
	Events []string `yaml:"events,omitempty"`

	// Expect holds expected fields: version, tokens, accountType, settled
	// (final_state) or a single bool under "value" (complete).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Top is the expected aggregation, in category order (top_by_category).
	Top []TopExpectation `yaml:"top,omitempty"`
}

// TopExpectation is one expected category winner.
type TopExpectation struct {
	AccountType string `yaml:"accountType"`
	ID          string `yaml:"id"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertFinalState    = "final_state"
	AssertComplete      = "complete"
	AssertTopByCategory = "top_by_category"
)

// LoadScenario reads and validates a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Base(path))
}

// ParseScenario decodes and validates a scenario held in memory.
func ParseScenario(data []byte, filename string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := scenario.decodeUpdates(filename); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, ordered by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// decodeUpdates runs every step update through the batch parser, so
// scenarios obey the same schema and normalization as real input.
func (s *Scenario) decodeUpdates(filename string) error {
	var batch []map[string]any
	for _, st := range s.Steps {
		if st.Update != nil {
			batch = append(batch, st.Update)
		}
	}
	if batch == nil {
		batch = []map[string]any{}
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode step updates: %w", err)
	}
	updates, err := parser.Parse(data, parser.FormatJSON, filename)
	if err != nil {
		return err
	}

	s.updates = make([]*account.Update, len(s.Steps))
	next := 0
	for i, st := range s.Steps {
		if st.Update != nil {
			s.updates[i] = &updates[next]
			next++
		}
	}
	return nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	var last int64
	for i, st := range s.Steps {
		if st.AtMs < 0 {
			return fmt.Errorf("steps[%d]: at_ms must be non-negative", i)
		}
		if st.AtMs < last {
			return fmt.Errorf("steps[%d]: at_ms %d is before previous step at %d", i, st.AtMs, last)
		}
		last = st.AtMs

		hasUpdate, hasCheck := st.Update != nil, st.ExpectComplete != nil
		if hasUpdate == hasCheck {
			return fmt.Errorf("steps[%d]: exactly one of update or expect_complete is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if _, err := ledger.ParseEventKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
		for _, ev := range a.Events {
			if _, _, err := splitEventRef(ev); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertFinalState:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertComplete:
		if _, ok := a.Expect["value"].(bool); !ok {
			return fmt.Errorf("assertions[%d]: expect.value (bool) is required for complete", index)
		}
	case AssertTopByCategory:
		// An empty top list asserts an empty aggregation.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
