package valuation

import (
	"math"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
)

// AgeRange maps an age to its multiplier bucket. Ages below 18 have no
// bucket and score with the neutral multiplier.
func AgeRange(age int) string {
	switch {
	case age < 18:
		return ""
	case age <= 24:
		return AgeRange18To24
	case age <= 34:
		return AgeRange25To34
	case age <= 44:
		return AgeRange35To44
	case age <= 54:
		return AgeRange45To54
	default:
		return AgeRange55Plus
	}
}

// Demographics scores step 1.
func Demographics(info domain.PersonalInfo, t *Tables) float64 {
	value := 0.0
	if info.HasAge() {
		value = t.DemographicsBase * multiplier(t.AgeMultipliers, AgeRange(info.Age))
	}
	value *= multiplier(t.GenderMultipliers, info.Gender)
	if info.HasLocation() {
		value += t.LocationBase
	}
	return roundCurrency(value)
}

// DigitalHabits scores step 2.
func DigitalHabits(habits domain.DigitalHabits, t *Tables) float64 {
	value := sumValues(t.SocialNetworkValues, habits.SocialNetworks)
	if habits.UsageFrequency > 0 {
		value += float64(habits.UsageFrequency) * t.FrequencyMultiplier
	}
	return roundCurrency(value)
}

// Consumption scores step 3.
func Consumption(c domain.Consumption, t *Tables) float64 {
	value := sumValues(t.ChannelValues, c.ShoppingChannels) +
		sumValues(t.CategoryValues, c.FavoriteCategories)
	return roundCurrency(value)
}

// Health scores step 4. An empty selection is worth zero.
func Health(h domain.Health, t *Tables) float64 {
	return roundCurrency(sumValues(t.InterestValues, h.HealthInterests))
}

// Advanced scores step 5. A section with neither field informed is empty
// and scores zero; otherwise the base is scaled by both multipliers.
func Advanced(a domain.Advanced, t *Tables) float64 {
	if a.IncomeRange == "" && a.ProfessionalArea == "" {
		return 0
	}
	value := t.AdvancedBase *
		multiplier(t.IncomeMultipliers, a.IncomeRange) *
		multiplier(t.ProfessionalMultipliers, a.ProfessionalArea)
	return roundCurrency(value)
}

// roundCurrency rounds half away from zero to whole reais and clamps
// negatives to zero.
func roundCurrency(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Round(v)
}
