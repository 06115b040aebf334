package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cartengine/internal/cart"
)

// Scenario defines a cart behavior scenario.
// A scenario seeds a catalog, drives the cart through a flow of operations
// and asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog lists the products available to the flow.
	Catalog []ProductSpec `yaml:"catalog,omitempty"`

	// CatalogFile is a catalog YAML file, relative to the scenario file.
	// Mutually exclusive with Catalog.
	CatalogFile string `yaml:"catalog_file,omitempty"`

	// StockPolicy is "informational" (default) or "reject".
	StockPolicy string `yaml:"stock_policy,omitempty"`

	// ToastDuration overrides the notification display time, e.g. "4s".
	ToastDuration string `yaml:"toast_duration,omitempty"`

	// Flow contains the operations, executed in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ProductSpec is an inline catalog record.
type ProductSpec struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Price          string `yaml:"price"`
	CompareAtPrice string `yaml:"compare_at_price,omitempty"`
	Stock          int    `yaml:"stock,omitempty"`
}

// Step is one operation in the flow.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	Product  string   `yaml:"product,omitempty"`
	Quantity *int     `yaml:"quantity,omitempty"`
	Price    string   `yaml:"price,omitempty"`
	Stock    *int     `yaml:"stock,omitempty"`
	Products []string `yaml:"products,omitempty"`
	Rate     string   `yaml:"rate,omitempty"`
	Duration string   `yaml:"duration,omitempty"`

	// Expect validates the step outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Flow operations.
const (
	OpAdd         = "add"
	OpSetQuantity = "set_quantity"
	OpRemove      = "remove"
	OpClear       = "clear"
	OpSetPrice    = "set_price"
	OpSetStock    = "set_stock"
	OpQuote       = "quote"
	OpAdvance     = "advance"
	OpDismiss     = "dismiss"
	OpRestart     = "restart"
	OpFailWrites  = "fail_writes"
	OpHealWrites  = "heal_writes"
)

// Expect is a subset match on a step outcome. Unset fields are not checked.
type Expect struct {
	// Error is the expected error code (e.g. "E201"). Empty means success.
	Error string `yaml:"error,omitempty"`

	ItemCount *int   `yaml:"item_count,omitempty"`
	Subtotal  string `yaml:"subtotal,omitempty"`
	Version   *int64 `yaml:"version,omitempty"`

	Toast *ToastExpect `yaml:"toast,omitempty"`
	Quote *QuoteExpect `yaml:"quote,omitempty"`
}

// ToastExpect matches the notification state.
type ToastExpect struct {
	Visible    bool   `yaml:"visible"`
	Product    string `yaml:"product,omitempty"`
	TotalItems *int   `yaml:"total_items,omitempty"`
	TotalPrice string `yaml:"total_price,omitempty"`
}

// QuoteExpect matches a bundle quote.
type QuoteExpect struct {
	ListTotal       string `yaml:"list_total,omitempty"`
	DiscountedTotal string `yaml:"discounted_total,omitempty"`
	Savings         string `yaml:"savings,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an op appears in the trace with matching args
	// - "trace_order": ops appear in order
	// - "trace_count": an op appears exactly N times
	// - "final_state": the cart ends in the given state
	// - "toast": the notification ends in the given state
	// - "persisted": the stored snapshot round-trips to the final state
	Type string `yaml:"type"`

	// Op is used by trace_contains and trace_count.
	Op string `yaml:"op,omitempty"`

	// Args is a subset match on invocation args (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Count is used by trace_count.
	Count int `yaml:"count,omitempty"`

	// Ops is used by trace_order.
	Ops []string `yaml:"ops,omitempty"`

	// State is used by final_state.
	State *StateExpect `yaml:"state,omitempty"`

	// Toast is used by toast.
	Toast *ToastExpect `yaml:"toast,omitempty"`
}

// StateExpect matches the final cart state.
type StateExpect struct {
	ItemCount *int         `yaml:"item_count,omitempty"`
	Subtotal  string       `yaml:"subtotal,omitempty"`
	Version   *int64       `yaml:"version,omitempty"`
	Items     []ItemExpect `yaml:"items,omitempty"`

	// Empty requires an empty cart.
	Empty bool `yaml:"empty,omitempty"`
}

// ItemExpect matches one line item, in cart order.
type ItemExpect struct {
	Product   string `yaml:"product"`
	Quantity  int    `yaml:"quantity"`
	UnitPrice string `yaml:"unit_price,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertToast         = "toast"
	AssertPersisted     = "persisted"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields. CatalogFile is
// resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.CatalogFile != "" && !filepath.IsAbs(scenario.CatalogFile) {
		scenario.CatalogFile = filepath.Join(filepath.Dir(path), scenario.CatalogFile)
	}
	if scenario.CatalogFile != "" {
		if _, err := os.Stat(scenario.CatalogFile); err != nil {
			return nil, fmt.Errorf("invalid scenario: catalog file not found: %s", scenario.CatalogFile)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
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
	if len(s.Catalog) > 0 && s.CatalogFile != "" {
		return fmt.Errorf("catalog and catalog_file are mutually exclusive")
	}
	if len(s.Catalog) == 0 && s.CatalogFile == "" {
		return fmt.Errorf("catalog or catalog_file is required")
	}
	if _, err := cart.ParseStockPolicy(s.StockPolicy); err != nil {
		return err
	}
	if s.ToastDuration != "" {
		if _, err := time.ParseDuration(s.ToastDuration); err != nil {
			return fmt.Errorf("toast_duration: %w", err)
		}
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, p := range s.Catalog {
		if p.ID == "" || p.Price == "" {
			return fmt.Errorf("catalog[%d]: id and price are required", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that a step carries the fields its op needs.
func validateStep(i int, st *Step) error {
	switch st.Op {
	case OpAdd, OpSetQuantity:
		if st.Product == "" || st.Quantity == nil {
			return fmt.Errorf("flow[%d]: product and quantity are required for %s", i, st.Op)
		}
	case OpRemove:
		if st.Product == "" {
			return fmt.Errorf("flow[%d]: product is required for remove", i)
		}
	case OpSetPrice:
		if st.Product == "" || st.Price == "" {
			return fmt.Errorf("flow[%d]: product and price are required for set_price", i)
		}
	case OpSetStock:
		if st.Product == "" || st.Stock == nil {
			return fmt.Errorf("flow[%d]: product and stock are required for set_stock", i)
		}
	case OpQuote:
		if len(st.Products) == 0 {
			return fmt.Errorf("flow[%d]: products is required for quote", i)
		}
	case OpAdvance:
		if _, err := time.ParseDuration(st.Duration); err != nil {
			return fmt.Errorf("flow[%d]: advance needs a valid duration: %w", i, err)
		}
	case OpClear, OpDismiss, OpRestart, OpFailWrites, OpHealWrites:
	case "":
		return fmt.Errorf("flow[%d]: op is required", i)
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", i, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
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
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
	case AssertToast:
		if a.Toast == nil {
			return fmt.Errorf("assertions[%d]: toast is required for toast", index)
		}
	case AssertPersisted:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
