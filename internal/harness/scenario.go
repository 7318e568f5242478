package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/priceforge/internal/costing"
	"github.com/roach88/priceforge/internal/domain"
)

// Scenario is a catalog plus a list of calculations with expected results.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is the path to the CUE catalog to load. Relative paths are
	// resolved against the scenario file's directory.
	Catalog string `yaml:"catalog"`

	// Calculations run in order against the same store.
	Calculations []Calculation `yaml:"calculations"`
}

// Calculation is one pricing request.
type Calculation struct {
	SKU string `yaml:"sku"`

	// Qty defaults to "1".
	Qty string `yaml:"qty,omitempty"`

	// AsOf is required; scenarios never depend on the wall clock.
	AsOf string `yaml:"as_of"`

	// Expect is optional. Without it the calculation only has to succeed.
	Expect *Expectation `yaml:"expect,omitempty"`
}

// Expectation lists the fields to check. Unset fields are not checked.
type Expectation struct {
	// ErrorCode expects the calculation to fail with this code. It excludes
	// every other field.
	ErrorCode string `yaml:"error_code,omitempty"`

	TotalMaterial  string `yaml:"total_material,omitempty"`
	TotalOperation string `yaml:"total_operation,omitempty"`
	TotalCost      string `yaml:"total_cost,omitempty"`
	Price          string `yaml:"price,omitempty"`
	Currency       string `yaml:"currency,omitempty"`
	MixedCurrency  *bool  `yaml:"mixed_currency,omitempty"`

	// Lines is the expected number of leaf lines.
	Lines *int `yaml:"lines,omitempty"`

	// Items checks individual lines by line number.
	Items []ItemExpectation `yaml:"items,omitempty"`
}

// ItemExpectation checks one leaf line.
type ItemExpectation struct {
	LineNo       int    `yaml:"line"`
	Description  string `yaml:"description,omitempty"`
	Quantity     string `yaml:"quantity,omitempty"`
	UnitCost     string `yaml:"unit_cost,omitempty"`
	ExtendedCost string `yaml:"extended_cost,omitempty"`
	Source       string `yaml:"source,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "calculation:" vs "calculations:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario name %q used by both %s and %s", s.Name, prev, name)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain slashes or spaces", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if _, err := os.Stat(s.Catalog); err != nil {
		return fmt.Errorf("catalog not found: %s", s.Catalog)
	}
	if len(s.Calculations) == 0 {
		return fmt.Errorf("calculations list is required and must be non-empty")
	}

	for i, c := range s.Calculations {
		if err := validateCalculation(c); err != nil {
			return fmt.Errorf("calculations[%d]: %w", i, err)
		}
	}
	return nil
}

func validateCalculation(c Calculation) error {
	if c.SKU == "" {
		return fmt.Errorf("sku is required")
	}
	if c.AsOf == "" {
		return fmt.Errorf("as_of is required")
	}
	if _, err := domain.ParseDate(c.AsOf); err != nil {
		return fmt.Errorf("as_of: %w", err)
	}
	if c.Qty != "" {
		if _, err := decimal.NewFromString(c.Qty); err != nil {
			return fmt.Errorf("qty %q is not a decimal", c.Qty)
		}
	}
	if c.Expect == nil {
		return nil
	}

	e := c.Expect
	if e.ErrorCode != "" {
		if !knownCode(e.ErrorCode) {
			return fmt.Errorf("expect.error_code: unknown code %q", e.ErrorCode)
		}
		if e.TotalMaterial != "" || e.TotalOperation != "" || e.TotalCost != "" || e.Price != "" ||
			e.Currency != "" || e.MixedCurrency != nil || e.Lines != nil || len(e.Items) > 0 {
			return fmt.Errorf("expect.error_code excludes other expectations")
		}
		return nil
	}

	for field, v := range map[string]string{
		"total_material":  e.TotalMaterial,
		"total_operation": e.TotalOperation,
		"total_cost":      e.TotalCost,
		"price":           e.Price,
	} {
		if v == "" {
			continue
		}
		if _, err := decimal.NewFromString(v); err != nil {
			return fmt.Errorf("expect.%s %q is not a decimal", field, v)
		}
	}
	for j, it := range e.Items {
		if it.LineNo < 1 {
			return fmt.Errorf("expect.items[%d]: line must be >= 1", j)
		}
	}
	return nil
}

func knownCode(code string) bool {
	switch costing.ErrorCode(code) {
	case costing.ErrCodeProductNotFound, costing.ErrCodeBOMNotFound, costing.ErrCodeUnsupportedKind,
		costing.ErrCodeCostNotFound, costing.ErrCodeCyclicBOM, costing.ErrCodeMaxDepth,
		costing.ErrCodeInvalidRequest, costing.ErrCodeInternal:
		return true
	}
	return false
}
