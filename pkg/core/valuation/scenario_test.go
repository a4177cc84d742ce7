package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

func TestNewDifference(t *testing.T) {
	d := NewDifference(200, 250)
	assert.Equal(t, 50.0, d.Diff)
	assert.Equal(t, 25.0, d.PercentDiff)

	d = NewDifference(0, 10)
	assert.Equal(t, 10.0, d.Diff)
	assert.Equal(t, 0.0, d.PercentDiff)

	d = NewDifference(-100, -50)
	assert.Equal(t, 50.0, d.Diff)
	assert.Equal(t, -50.0, d.PercentDiff)
}

func TestCompare(t *testing.T) {
	a := baseDataSet()
	b := baseDataSet()
	b.Label = "Optimistic"
	b.Parameters.DiscountRate = 18
	b.Parameters.PerpetuityRate = 5

	cmp, err := Compare(a, b)
	require.NoError(t, err)

	assert.Equal(t, "Base", cmp.BaseLabel)
	assert.Equal(t, "Optimistic", cmp.CompareLabel)
	assert.Equal(t, -12.0, cmp.DiscountRate.Diff)
	assert.InDelta(t, -40.0, cmp.DiscountRate.PercentDiff, 1e-9)
	assert.Equal(t, 0.0, cmp.CorporateTaxRate.Diff)
	assert.Greater(t, cmp.EnterpriseValue.Diff, 0.0)
	assert.InDelta(t, cmp.Compare.EnterpriseValue-cmp.Base.EnterpriseValue, cmp.EnterpriseValue.Diff, 1e-6)
}

func TestCompare_ReportsFailingSide(t *testing.T) {
	bad := baseDataSet()
	bad.Label = "Broken"
	bad.EBITDAData = models.EBITDAData{}

	_, err := Compare(baseDataSet(), bad)
	require.ErrorIs(t, err, ErrEmptyDataset)
	assert.Contains(t, err.Error(), "Broken")
}

func TestCompareAll(t *testing.T) {
	conservative := baseDataSet()
	conservative.Label = "Conservative"
	conservative.Parameters.DiscountRate = 35

	optimistic := baseDataSet()
	optimistic.Label = "Optimistic"
	optimistic.Parameters.DiscountRate = 25

	out, err := CompareAll(baseDataSet(), conservative, optimistic)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Less(t, out[0].EnterpriseValue.Diff, 0.0)
	assert.Greater(t, out[1].EnterpriseValue.Diff, 0.0)
	assert.Same(t, out[0].Base, out[1].Base)
}

func TestCompareAll_NoOthers(t *testing.T) {
	out, err := CompareAll(baseDataSet())
	require.NoError(t, err)
	assert.Empty(t, out)
}
