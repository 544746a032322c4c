package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightTableLookup(t *testing.T) {
	table := NewWeightTable(map[string]float64{
		"software_development": 0.85,
		" Consulting ":         1.2,
	})

	assert.Equal(t, 2, table.Len())
	assert.InDelta(t, 0.85, table.Weight("SOFTWARE_DEVELOPMENT"), 1e-9)
	assert.InDelta(t, 0.85, table.Weight("software_development"), 1e-9)
	assert.InDelta(t, 1.2, table.Weight("consulting"), 1e-9)
}

func TestWeightTableUnknownIsNeutral(t *testing.T) {
	table := DefaultJobTypeWeights()

	assert.InDelta(t, 1.0, table.Weight("SKYDIVING_INSTRUCTOR"), 1e-9)
	assert.InDelta(t, 1.0, table.Weight(""), 1e-9)
}

func TestDefaultTablesCoverAllCategories(t *testing.T) {
	jobs := DefaultJobTypeWeights()
	industries := DefaultIndustryWeights()

	assert.Equal(t, 6, jobs.Len())
	assert.Equal(t, 6, industries.Len())
	assert.InDelta(t, 1.0, jobs.Weight("OTHER"), 1e-9)
	assert.InDelta(t, 1.3, industries.Weight("FINANCE"), 1e-9)
}
