// Package valuation turns a Profile into a monetary estimate of the user's
// data. Every function here is pure: no I/O, no clock, no randomness.
package valuation

// Tables holds the static scoring data. Values are Brazilian reais.
type Tables struct {
	// Demographics
	DemographicsBase  float64
	AgeMultipliers    map[string]float64
	GenderMultipliers map[string]float64
	LocationBase      float64

	// Digital habits
	SocialNetworkValues map[string]float64
	FrequencyMultiplier float64

	// Consumption
	ChannelValues  map[string]float64
	CategoryValues map[string]float64

	// Health
	InterestValues map[string]float64

	// Advanced
	AdvancedBase            float64
	IncomeMultipliers       map[string]float64
	ProfessionalMultipliers map[string]float64

	Weights Weights
}

// Weights scale each raw category value before summing.
type Weights struct {
	Demographics  float64
	DigitalHabits float64
	Consumption   float64
	Health        float64
	Advanced      float64
}

// Age ranges used by AgeMultipliers.
const (
	AgeRange18To24 = "18-24"
	AgeRange25To34 = "25-34"
	AgeRange35To44 = "35-44"
	AgeRange45To54 = "45-54"
	AgeRange55Plus = "55+"
)

// DefaultTables returns the production scoring tables.
func DefaultTables() *Tables {
	return &Tables{
		DemographicsBase: 40,
		AgeMultipliers: map[string]float64{
			AgeRange18To24: 1.2,
			AgeRange25To34: 1.5,
			AgeRange35To44: 1.3,
			AgeRange45To54: 1.1,
			AgeRange55Plus: 0.9,
		},
		GenderMultipliers: map[string]float64{
			"masculino":         1.0,
			"feminino":          1.1,
			"outro":             1.0,
			"prefiro_nao_dizer": 0.9,
		},
		LocationBase: 15,

		SocialNetworkValues: map[string]float64{
			"instagram": 25,
			"facebook":  20,
			"linkedin":  35,
			"twitter":   15,
			"tiktok":    30,
			"youtube":   20,
		},
		FrequencyMultiplier: 3,

		ChannelValues: map[string]float64{
			"lojas_fisicas": 10,
			"ecommerce":     25,
			"marketplaces":  20,
			"redes_sociais": 15,
			"apps_delivery": 18,
		},
		CategoryValues: map[string]float64{
			"moda_vestuario":   15,
			"eletronicos":      30,
			"casa_decoracao":   12,
			"beleza_cuidados":  14,
			"esportes_fitness": 16,
			"livros_educacao":  10,
			"alimentacao":      8,
			"viagem_turismo":   25,
		},

		InterestValues: map[string]float64{
			"academia_exercicios":  20,
			"alimentacao_saudavel": 15,
			"suplementos":          25,
			"produtos_naturais":    12,
			"medicina_alternativa": 10,
			"wellness_mindfulness": 18,
		},

		AdvancedBase: 30,
		IncomeMultipliers: map[string]float64{
			"ate_3000":             1.0,
			"3000_8000":            1.5,
			"acima_8000":           2.2,
			"prefiro_nao_informar": 1.0,
		},
		ProfessionalMultipliers: map[string]float64{
			"tecnologia":      1.8,
			"negocios_vendas": 1.5,
			"saude":           1.6,
			"educacao":        1.2,
			"criativo_design": 1.3,
			"outro":           1.0,
		},

		Weights: Weights{
			Demographics:  1.0,
			DigitalHabits: 1.2,
			Consumption:   1.1,
			Health:        0.9,
			Advanced:      1.3,
		},
	}
}

// multiplier returns m[key], or 1.0 when the key is absent or unknown.
func multiplier(m map[string]float64, key string) float64 {
	if key == "" {
		return 1.0
	}
	if v, ok := m[key]; ok {
		return v
	}
	return 1.0
}

// sumValues adds m[id] over a set; unknown ids and repeats add nothing.
func sumValues(m map[string]float64, ids []string) float64 {
	total := 0.0
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		total += m[id]
	}
	return total
}
