package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Workshop(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/workshop.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Outcomes, 5)

	first := result.Outcomes[0]
	require.NotNil(t, first.Run)
	assert.Equal(t, "run-1", first.Run.ID)
	assert.Equal(t, "125", first.Run.Price.String())

	require.NotNil(t, result.Outcomes[2].Err)
	assert.Equal(t, []string{"X001", "X002", "X001"}, result.Outcomes[2].Err.Chain)
}

func TestRun_Kitchen(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/kitchen.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ReportsMismatches(t *testing.T) {
	path := writeScenario(t, `name: wrong
description: every expectation is off
catalog: workshop.cue
calculations:
  - sku: C001
    as_of: "2024-06-01"
    expect:
      total_cost: "99"
      price: "125"
      currency: USD
      mixed_currency: false
      lines: 2
      items:
        - line: 1
          description: Pine board
          source: override_bom
        - line: 9
  - sku: X001
    as_of: "2024-06-01"
    expect:
      error_code: COST_NOT_FOUND
  - sku: C001
    as_of: "2024-06-01"
    expect:
      error_code: CYCLIC_BOM
  - sku: X002
    as_of: "2024-06-01"
    expect:
      price: "1"
  - sku: X002
    as_of: "2024-06-01"
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Options{})
	require.NoError(t, err)
	assert.False(t, result.Pass)

	want := []string{
		"calculations[0] C001@2024-06-01: total_cost: expected 99, got 100",
		"calculations[0] C001@2024-06-01: currency: expected USD, got EUR",
		"calculations[0] C001@2024-06-01: mixed_currency: expected false, got true",
		"calculations[0] C001@2024-06-01: lines: expected 2, got 3",
		`calculations[0] C001@2024-06-01 line 1: description: expected "Pine board", got "Oak board"`,
		"calculations[0] C001@2024-06-01 line 1: source: expected override_bom, got listino",
		"calculations[0] C001@2024-06-01: line 9: not in run",
	}
	require.GreaterOrEqual(t, len(result.Errors), len(want)+4)
	assert.Equal(t, want, result.Errors[:len(want)])

	rest := result.Errors[len(want):]
	assert.Contains(t, rest[0], "calculations[1] X001@2024-06-01: expected error COST_NOT_FOUND, got CYCLIC_BOM")
	assert.Contains(t, rest[1], "calculations[2] C001@2024-06-01: expected error CYCLIC_BOM, got price 125")
	assert.Contains(t, rest[2], "calculations[3] X002@2024-06-01: unexpected error")
	assert.Contains(t, rest[3], "calculations[4] X002@2024-06-01: unexpected error")
}

func TestRun_IsolatedStores(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/workshop.yaml")
	require.NoError(t, err)

	// A second run starts from an empty database, so run IDs restart and
	// the catalog import does not collide with the first.
	for range 2 {
		result, err := Run(context.Background(), s, Options{})
		require.NoError(t, err)
		assert.True(t, result.Pass)
		assert.Equal(t, "run-1", result.Outcomes[0].Run.ID)
	}
}

func TestRun_BrokenCatalog(t *testing.T) {
	path := writeScenario(t, "name: x\ndescription: d\ncatalog: workshop.cue\ncalculations: [{sku: C001, as_of: '2024-06-01'}]\n")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "workshop.cue"), []byte("materials: W01: {}\n"), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(context.Background(), s, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
}

func TestRun_MaxDepth(t *testing.T) {
	path := writeScenario(t, "name: x\ndescription: d\ncatalog: workshop.cue\ncalculations: [{sku: C001, as_of: '2024-06-01', expect: {error_code: MAX_DEPTH_EXCEEDED}}]\n")
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(context.Background(), s, Options{MaxDepth: 1})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
