package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ============================================================
// Section patches: partial updates merged into a Profile
// ============================================================

// SectionPatch is a partial update of one profile section. Nil fields are
// "not present" and leave the current value untouched.
type SectionPatch interface {
	Section() Section
	ApplyTo(p *Profile)
}

// PersonalInfoPatch updates step 1.
type PersonalInfoPatch struct {
	Age      *int    `json:"age,omitempty" validate:"omitempty,min=18,max=100"`
	Gender   *string `json:"gender,omitempty" validate:"omitempty,oneof=masculino feminino outro prefiro_nao_dizer"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=120"`
}

func (PersonalInfoPatch) Section() Section { return SectionPersonalInfo }

func (pt PersonalInfoPatch) ApplyTo(p *Profile) {
	if pt.Age != nil {
		p.PersonalInfo.Age = *pt.Age
	}
	if pt.Gender != nil {
		p.PersonalInfo.Gender = *pt.Gender
	}
	if pt.Location != nil {
		p.PersonalInfo.Location = *pt.Location
	}
}

// DigitalHabitsPatch updates step 2.
type DigitalHabitsPatch struct {
	SocialNetworks *[]string `json:"socialNetworks,omitempty" validate:"omitempty,dive,oneof=instagram facebook linkedin twitter tiktok youtube"`
	UsageFrequency *int      `json:"usageFrequency,omitempty" validate:"omitempty,min=1,max=10"`
}

func (DigitalHabitsPatch) Section() Section { return SectionDigitalHabits }

func (pt DigitalHabitsPatch) ApplyTo(p *Profile) {
	if pt.SocialNetworks != nil {
		p.DigitalHabits.SocialNetworks = NormalizeSet(*pt.SocialNetworks)
	}
	if pt.UsageFrequency != nil {
		p.DigitalHabits.UsageFrequency = *pt.UsageFrequency
	}
}

// ConsumptionPatch updates step 3.
type ConsumptionPatch struct {
	ShoppingChannels   *[]string `json:"shoppingChannels,omitempty" validate:"omitempty,dive,oneof=lojas_fisicas ecommerce marketplaces redes_sociais apps_delivery"`
	FavoriteCategories *[]string `json:"favoriteCategories,omitempty" validate:"omitempty,dive,oneof=moda_vestuario eletronicos casa_decoracao beleza_cuidados esportes_fitness livros_educacao alimentacao viagem_turismo"`
}

func (ConsumptionPatch) Section() Section { return SectionConsumption }

func (pt ConsumptionPatch) ApplyTo(p *Profile) {
	if pt.ShoppingChannels != nil {
		p.Consumption.ShoppingChannels = NormalizeSet(*pt.ShoppingChannels)
	}
	if pt.FavoriteCategories != nil {
		p.Consumption.FavoriteCategories = NormalizeSet(*pt.FavoriteCategories)
	}
}

// HealthPatch updates step 4.
type HealthPatch struct {
	HealthInterests *[]string `json:"healthInterests,omitempty" validate:"omitempty,dive,oneof=academia_exercicios alimentacao_saudavel suplementos produtos_naturais medicina_alternativa wellness_mindfulness"`
}

func (HealthPatch) Section() Section { return SectionHealth }

func (pt HealthPatch) ApplyTo(p *Profile) {
	if pt.HealthInterests != nil {
		p.Health.HealthInterests = NormalizeSet(*pt.HealthInterests)
	}
}

// AdvancedPatch updates step 5.
type AdvancedPatch struct {
	IncomeRange      *string `json:"incomeRange,omitempty" validate:"omitempty,oneof=ate_3000 3000_8000 acima_8000 prefiro_nao_informar"`
	ProfessionalArea *string `json:"professionalArea,omitempty" validate:"omitempty,oneof=tecnologia negocios_vendas saude educacao criativo_design outro"`
}

func (AdvancedPatch) Section() Section { return SectionAdvanced }

func (pt AdvancedPatch) ApplyTo(p *Profile) {
	if pt.IncomeRange != nil {
		p.Advanced.IncomeRange = *pt.IncomeRange
	}
	if pt.ProfessionalArea != nil {
		p.Advanced.ProfessionalArea = *pt.ProfessionalArea
	}
}

// DecodeSectionPatch decodes a JSON body into the patch type of section.
// Unknown fields are rejected so typos do not silently turn into no-ops.
func DecodeSectionPatch(section string, body []byte) (SectionPatch, error) {
	var target SectionPatch
	switch Section(section) {
	case SectionPersonalInfo:
		target = &PersonalInfoPatch{}
	case SectionDigitalHabits:
		target = &DigitalHabitsPatch{}
	case SectionConsumption:
		target = &ConsumptionPatch{}
	case SectionHealth:
		target = &HealthPatch{}
	case SectionAdvanced:
		target = &AdvancedPatch{}
	default:
		return nil, &ErrValidation{Field: "section", Message: fmt.Sprintf("seção desconhecida: %q", section)}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, &ErrValidation{Field: section, Message: "corpo da requisição inválido: " + err.Error()}
	}
	return target, nil
}
