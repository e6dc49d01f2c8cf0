package domain

// ResultSource tells where a ValuationResult was computed.
type ResultSource string

const (
	SourceBackend ResultSource = "backend"
	SourceLocal   ResultSource = "local"
)

// CategoryValues holds one currency value per profile category.
type CategoryValues struct {
	Demographics  float64 `json:"demographics"`
	DigitalHabits float64 `json:"digitalHabits"`
	Consumption   float64 `json:"consumption"`
	Health        float64 `json:"health"`
	Advanced      float64 `json:"advanced"`
}

// Sum adds the five categories.
func (c CategoryValues) Sum() float64 {
	return c.Demographics + c.DigitalHabits + c.Consumption + c.Health + c.Advanced
}

// ValuationResult is the output of one completed calculation.
type ValuationResult struct {
	Total     float64        `json:"total"`
	Breakdown CategoryValues `json:"breakdown"`
	RawValues CategoryValues `json:"rawValues"`
	Insights  []string       `json:"insights"`
	Source    ResultSource   `json:"source,omitempty"`
}

// Clone returns a copy that does not share the insights slice.
func (r *ValuationResult) Clone() *ValuationResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Insights = append([]string(nil), r.Insights...)
	if c.Insights == nil {
		c.Insights = []string{}
	}
	return &c
}
