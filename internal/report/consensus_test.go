package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

func reportsOf(totals map[string]float64) map[string]entity.FinalReport {
	out := make(map[string]entity.FinalReport, len(totals))
	for m, v := range totals {
		out[m] = entity.FinalReport{TotalCredits: v}
	}
	return out
}

func TestCompare_AgreementWithinTolerance(t *testing.T) {
	models := []string{"a", "b", "c"}
	c := Compare(models, reportsOf(map[string]float64{"a": 1000.00, "b": 1000.50, "c": 999.80}))

	assert.True(t, c.Agreement)
	require.NotNil(t, c.Range)
	assert.Equal(t, 999.80, c.Range.Min)
	assert.Equal(t, 1000.50, c.Range.Max)
	assert.Equal(t, 0.70, c.Range.Spread)
	assert.True(t, c.NoMajority)
	require.NotNil(t, c.MajorityTotalCredits)
	assert.Equal(t, 1000.00, *c.MajorityTotalCredits)
	assert.Equal(t, map[string]float64{"a": 1000.00, "b": 1000.50, "c": 999.80}, c.PerModelTotals)
}

func TestCompare_DisagreementBeyondTolerance(t *testing.T) {
	c := Compare([]string{"a", "b", "c"}, reportsOf(map[string]float64{"a": 1000.00, "b": 1000.50, "c": 999.30}))

	assert.False(t, c.Agreement)
	require.NotNil(t, c.Range)
	assert.Equal(t, 1.2, c.Range.Spread)
}

func TestCompare_TwoModelsDistinctTotals(t *testing.T) {
	c := Compare([]string{"A", "B"}, reportsOf(map[string]float64{"A": 1000.00, "B": 1000.40}))

	assert.True(t, c.Agreement)
	assert.Equal(t, 0.4, c.Range.Spread)
	assert.True(t, c.NoMajority)
	assert.Equal(t, 1000.00, *c.MajorityTotalCredits)
}

func TestCompare_SpreadExactlyOneAgrees(t *testing.T) {
	c := Compare([]string{"a", "b"}, reportsOf(map[string]float64{"a": 10.10, "b": 11.10}))

	assert.True(t, c.Agreement)
	assert.Equal(t, 1.0, c.Range.Spread)
}

func TestCompare_MajorityVote(t *testing.T) {
	c := Compare([]string{"a", "b", "c"}, reportsOf(map[string]float64{"a": 50, "b": 75, "c": 75}))

	require.NotNil(t, c.MajorityTotalCredits)
	assert.Equal(t, 75.0, *c.MajorityTotalCredits)
	assert.False(t, c.NoMajority)
	assert.Equal(t, map[string]int{"50.00": 1, "75.00": 2}, c.Votes)
}

func TestCompare_TieGoesToFirstSeen(t *testing.T) {
	c := Compare([]string{"b", "a"}, reportsOf(map[string]float64{"a": 1, "b": 2}))

	require.NotNil(t, c.MajorityTotalCredits)
	assert.Equal(t, 2.0, *c.MajorityTotalCredits)
}

func TestCompare_SingleModel(t *testing.T) {
	c := Compare([]string{"a"}, reportsOf(map[string]float64{"a": 158.5}))

	assert.True(t, c.Agreement)
	assert.False(t, c.NoMajority)
	assert.Equal(t, 0.0, c.Range.Spread)
	assert.Equal(t, 158.5, *c.MajorityTotalCredits)
}

func TestCompare_SkipsModelsWithoutReport(t *testing.T) {
	c := Compare([]string{"a", "broken", "b"}, reportsOf(map[string]float64{"a": 5, "b": 5}))

	assert.True(t, c.Agreement)
	assert.NotContains(t, c.PerModelTotals, "broken")
	assert.Equal(t, map[string]int{"5.00": 2}, c.Votes)
}

func TestCompare_NoReports(t *testing.T) {
	c := Compare([]string{"a", "b"}, nil)

	assert.False(t, c.Agreement)
	assert.Equal(t, ReasonNoReports, c.Reason)
	assert.Nil(t, c.Range)
	assert.Nil(t, c.MajorityTotalCredits)
}
