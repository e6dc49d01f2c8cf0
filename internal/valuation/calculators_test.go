package valuation_test

import (
	"testing"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/valuation"

	"github.com/stretchr/testify/assert"
)

func TestAgeRange(t *testing.T) {
	cases := map[int]string{
		17:  "",
		18:  valuation.AgeRange18To24,
		24:  valuation.AgeRange18To24,
		25:  valuation.AgeRange25To34,
		34:  valuation.AgeRange25To34,
		35:  valuation.AgeRange35To44,
		45:  valuation.AgeRange45To54,
		54:  valuation.AgeRange45To54,
		55:  valuation.AgeRange55Plus,
		100: valuation.AgeRange55Plus,
	}
	for age, want := range cases {
		assert.Equal(t, want, valuation.AgeRange(age), "age %d", age)
	}
}

func TestDemographics(t *testing.T) {
	tables := valuation.DefaultTables()

	tests := []struct {
		name string
		info domain.PersonalInfo
		want float64
	}{
		{"empty", domain.PersonalInfo{}, 0},
		{"location only", domain.PersonalInfo{Location: "Curitiba"}, 15},
		{"blank location", domain.PersonalInfo{Location: "   "}, 0},
		{"age without gender", domain.PersonalInfo{Age: 40}, 52},
		{"gender without age", domain.PersonalInfo{Gender: "feminino", Location: "Natal"}, 15},
		{"feminino 25-34", domain.PersonalInfo{Age: 28, Gender: "feminino"}, 66},
		{"unknown gender is neutral", domain.PersonalInfo{Age: 28, Gender: "n/a"}, 60},
		{"under 18 is neutral", domain.PersonalInfo{Age: 16}, 40},
		{"full", domain.PersonalInfo{Age: 60, Gender: "prefiro_nao_dizer", Location: "Belém"}, 47},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuation.Demographics(tt.info, tables))
		})
	}
}

func TestDigitalHabits(t *testing.T) {
	tables := valuation.DefaultTables()

	assert.Zero(t, valuation.DigitalHabits(domain.DigitalHabits{}, tables))
	assert.Equal(t, 30.0, valuation.DigitalHabits(domain.DigitalHabits{UsageFrequency: 10}, tables))

	a := valuation.DigitalHabits(domain.DigitalHabits{SocialNetworks: []string{"instagram", "linkedin", "orkut"}, UsageFrequency: 2}, tables)
	b := valuation.DigitalHabits(domain.DigitalHabits{SocialNetworks: []string{"orkut", "linkedin", "instagram"}, UsageFrequency: 2}, tables)
	assert.Equal(t, 66.0, a)
	assert.Equal(t, a, b, "network order must not matter")

	dup := valuation.DigitalHabits(domain.DigitalHabits{SocialNetworks: []string{"tiktok", "tiktok"}}, tables)
	assert.Equal(t, 30.0, dup)
}

func TestConsumption(t *testing.T) {
	tables := valuation.DefaultTables()

	assert.Zero(t, valuation.Consumption(domain.Consumption{}, tables))
	assert.Equal(t, 25.0, valuation.Consumption(domain.Consumption{FavoriteCategories: []string{"viagem_turismo", "desconhecida"}}, tables))
	assert.Equal(t, 66.0, valuation.Consumption(domain.Consumption{
		ShoppingChannels:   []string{"lojas_fisicas", "apps_delivery"},
		FavoriteCategories: []string{"esportes_fitness", "beleza_cuidados", "alimentacao"},
	}, tables))
}

func TestHealth(t *testing.T) {
	tables := valuation.DefaultTables()

	assert.Zero(t, valuation.Health(domain.Health{}, tables))
	assert.Zero(t, valuation.Health(domain.Health{HealthInterests: []string{}}, tables))
	assert.Equal(t, 45.0, valuation.Health(domain.Health{HealthInterests: []string{"academia_exercicios", "suplementos"}}, tables))
}

func TestAdvanced(t *testing.T) {
	tables := valuation.DefaultTables()

	assert.Zero(t, valuation.Advanced(domain.Advanced{}, tables))
	assert.Equal(t, 30.0, valuation.Advanced(domain.Advanced{IncomeRange: "prefiro_nao_informar"}, tables))
	assert.Equal(t, 66.0, valuation.Advanced(domain.Advanced{IncomeRange: "acima_8000"}, tables))
	assert.Equal(t, 36.0, valuation.Advanced(domain.Advanced{ProfessionalArea: "educacao"}, tables))
	assert.Equal(t, 30.0, valuation.Advanced(domain.Advanced{IncomeRange: "bilionario", ProfessionalArea: "astronauta"}, tables))
	assert.Equal(t, 119.0, valuation.Advanced(domain.Advanced{IncomeRange: "acima_8000", ProfessionalArea: "tecnologia"}, tables))
}

func TestCalculators_NonNegativeForEveryOption(t *testing.T) {
	tables := valuation.DefaultTables()

	values := func(opts []domain.Option) []string {
		out := make([]string, 0, len(opts))
		for _, o := range opts {
			out = append(out, o.Value)
		}
		return out
	}

	for _, g := range domain.GenderOptions {
		for age := 18; age <= 100; age += 7 {
			assert.GreaterOrEqual(t, valuation.Demographics(domain.PersonalInfo{Age: age, Gender: g.Value}, tables), 0.0)
		}
	}
	for f := 1; f <= 10; f++ {
		assert.GreaterOrEqual(t, valuation.DigitalHabits(domain.DigitalHabits{SocialNetworks: values(domain.SocialNetworkOptions), UsageFrequency: f}, tables), 0.0)
	}
	assert.GreaterOrEqual(t, valuation.Consumption(domain.Consumption{
		ShoppingChannels:   values(domain.ShoppingChannelOptions),
		FavoriteCategories: values(domain.FavoriteCategoryOptions),
	}, tables), 0.0)
	assert.GreaterOrEqual(t, valuation.Health(domain.Health{HealthInterests: values(domain.HealthInterestOptions)}, tables), 0.0)
	for _, inc := range domain.IncomeRangeOptions {
		for _, area := range domain.ProfessionalAreaOptions {
			assert.GreaterOrEqual(t, valuation.Advanced(domain.Advanced{IncomeRange: inc.Value, ProfessionalArea: area.Value}, tables), 0.0)
		}
	}
}
