package valuation

import "github.com/boddenberg/datapay-bfa-go/internal/domain"

// Engine applies the category weights to the calculator outputs.
//
// Rounding is per category: each weighted value is rounded half away from
// zero into the breakdown, and Total is the sum of the rounded breakdown.
type Engine struct {
	tables *Tables
}

// NewEngine creates an engine. A nil tables argument selects DefaultTables.
func NewEngine(tables *Tables) *Engine {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Engine{tables: tables}
}

// Tables exposes the scoring tables in use.
func (e *Engine) Tables() *Tables { return e.tables }

// Calculate scores a profile. It never fails: missing data scores zero.
func (e *Engine) Calculate(p domain.Profile) domain.ValuationResult {
	t := e.tables

	raw := domain.CategoryValues{
		Demographics:  Demographics(p.PersonalInfo, t),
		DigitalHabits: DigitalHabits(p.DigitalHabits, t),
		Consumption:   Consumption(p.Consumption, t),
		Health:        Health(p.Health, t),
		Advanced:      Advanced(p.Advanced, t),
	}

	breakdown := domain.CategoryValues{
		Demographics:  roundCurrency(raw.Demographics * t.Weights.Demographics),
		DigitalHabits: roundCurrency(raw.DigitalHabits * t.Weights.DigitalHabits),
		Consumption:   roundCurrency(raw.Consumption * t.Weights.Consumption),
		Health:        roundCurrency(raw.Health * t.Weights.Health),
		Advanced:      roundCurrency(raw.Advanced * t.Weights.Advanced),
	}

	return domain.ValuationResult{
		Total:     breakdown.Sum(),
		Breakdown: breakdown,
		RawValues: raw,
		Insights:  []string{},
		Source:    domain.SourceLocal,
	}
}

// Estimate scores a profile and attaches its insights.
func (e *Engine) Estimate(p domain.Profile) *domain.ValuationResult {
	result := e.Calculate(p)
	result.Insights = GenerateInsights(p, &result)
	return &result
}
