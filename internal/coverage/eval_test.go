package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateScenarioS4(t *testing.T) {
	statusCounts := map[string]int{"DD": 10, "DN": 5, "NA": 2, "DA": 3, "SU": 0}
	e := NewEngine(statusCounts, nil)
	v, err := e.EvaluateOne("(DD + DN)/(NA + DA + DN + DD + SU)")
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)
}

func TestEvaluateUnknownIdentifierIsZero(t *testing.T) {
	e := NewEngine(map[string]int{"DD": 10}, nil)
	v, err := e.EvaluateOne("DD + ZZ")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestEvaluatePower(t *testing.T) {
	e := NewEngine(map[string]int{"DD": 2}, nil)
	v, err := e.EvaluateOne("DD ** 3")
	require.NoError(t, err)
	assert.Equal(t, 8.0, v)
}

func TestGroupCountsSumMembers(t *testing.T) {
	statusCounts := map[string]int{"DD": 10, "DN": 5}
	groups := map[string][]string{"DE": {"DD", "DN"}}
	e := NewEngine(statusCounts, groups)
	v, err := e.EvaluateOne("DE")
	require.NoError(t, err)
	assert.Equal(t, 15.0, v)
}

func TestFallbackRatios(t *testing.T) {
	ratios := FallbackRatios(map[string]int{"DD": 3, "NA": 1})
	assert.Equal(t, 0.75, ratios["DD"])
	assert.Equal(t, 0.25, ratios["NA"])
}
