package valuation

import "github.com/boddenberg/datapay-bfa-go/internal/domain"

// Insight messages, in evaluation order.
const (
	InsightManyNetworks   = "Sua presença em múltiplas redes sociais aumenta significativamente o valor dos seus dados"
	InsightElectronics    = "Seu interesse em eletrônicos é altamente valorizado por empresas de tecnologia"
	InsightPremiumIncome  = "Sua faixa de renda coloca você em um segmento premium muito procurado"
	InsightTechProfession = "Profissionais de tecnologia têm dados especialmente valiosos para o mercado B2B"
	InsightHealthFocused  = "Seus interesses em saúde e bem-estar atraem marcas de um mercado em forte expansão"
	InsightHeavyUser      = "Seu uso intenso das redes gera um volume de dados comportamentais muito disputado"
)

type insightRule struct {
	message string
	holds   func(p domain.Profile, r *domain.ValuationResult) bool
}

var insightRules = []insightRule{
	{InsightManyNetworks, func(p domain.Profile, _ *domain.ValuationResult) bool {
		return len(domain.NormalizeSet(p.DigitalHabits.SocialNetworks)) > 3
	}},
	{InsightElectronics, func(p domain.Profile, _ *domain.ValuationResult) bool {
		return domain.Contains(p.Consumption.FavoriteCategories, domain.CategoryElectronics)
	}},
	{InsightPremiumIncome, func(p domain.Profile, _ *domain.ValuationResult) bool {
		return p.Advanced.IncomeRange == domain.IncomeAbove8000
	}},
	{InsightTechProfession, func(p domain.Profile, _ *domain.ValuationResult) bool {
		return p.Advanced.ProfessionalArea == domain.AreaTechnology
	}},
	{InsightHealthFocused, func(p domain.Profile, _ *domain.ValuationResult) bool {
		return len(domain.NormalizeSet(p.Health.HealthInterests)) >= 3
	}},
	{InsightHeavyUser, func(p domain.Profile, r *domain.ValuationResult) bool {
		return p.DigitalHabits.UsageFrequency >= 8 && r != nil && r.RawValues.DigitalHabits > 0
	}},
}

// GenerateInsights returns the message of every rule that holds, in rule
// order. The result is never nil.
func GenerateInsights(p domain.Profile, result *domain.ValuationResult) []string {
	insights := make([]string, 0, len(insightRules))
	for _, rule := range insightRules {
		if rule.holds(p, result) {
			insights = append(insights, rule.message)
		}
	}
	return insights
}
