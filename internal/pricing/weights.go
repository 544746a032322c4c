// Package pricing implements the canonical premium formula and the risk
// weight tables it depends on. Every caller that needs a premium or a policy
// risk score goes through this package; there is exactly one copy of the
// formula.
package pricing

import "strings"

// WeightTable maps a job or industry category to its multiplicative risk
// weight. Tables are immutable after construction and injected into the
// calculator, so tests can price against alternate tables.
type WeightTable struct {
	weights map[string]float64
}

// NewWeightTable builds a WeightTable from the given entries. Keys are
// normalized to upper case.
func NewWeightTable(entries map[string]float64) WeightTable {
	w := make(map[string]float64, len(entries))
	for k, v := range entries {
		w[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return WeightTable{weights: w}
}

// Weight returns the risk weight for category. Absent keys are not an error:
// an unknown category degrades to the neutral weight 1.0.
func (t WeightTable) Weight(category string) float64 {
	if w, ok := t.weights[strings.ToUpper(strings.TrimSpace(category))]; ok {
		return w
	}
	return 1.0
}

// Len returns the number of known categories.
func (t WeightTable) Len() int {
	return len(t.weights)
}

// DefaultJobTypeWeights returns the standard job-type risk weights.
func DefaultJobTypeWeights() WeightTable {
	return NewWeightTable(map[string]float64{
		"SOFTWARE_DEVELOPMENT": 0.85,
		"DESIGN":               0.9,
		"WRITING":              0.8,
		"MARKETING":            1.1,
		"CONSULTING":           1.2,
		"OTHER":                1.0,
	})
}

// DefaultIndustryWeights returns the standard industry risk weights.
func DefaultIndustryWeights() WeightTable {
	return NewWeightTable(map[string]float64{
		"TECHNOLOGY": 0.9,
		"FINANCE":    1.3,
		"HEALTHCARE": 1.1,
		"EDUCATION":  0.8,
		"RETAIL":     1.2,
		"OTHER":      1.0,
	})
}
