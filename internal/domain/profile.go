// Package domain defines the core entities of the DataPay calculator.
// These models are independent of external services and represent the
// canonical data structures used throughout the BFA.
package domain

import "strings"

// Section names the five parts of a Profile.
type Section string

const (
	SectionPersonalInfo  Section = "personalInfo"
	SectionDigitalHabits Section = "digitalHabits"
	SectionConsumption   Section = "consumption"
	SectionHealth        Section = "health"
	SectionAdvanced      Section = "advanced"
)

// Sections lists every profile section in wizard order.
var Sections = []Section{
	SectionPersonalInfo,
	SectionDigitalHabits,
	SectionConsumption,
	SectionHealth,
	SectionAdvanced,
}

// DefaultUsageFrequency is the slider position of a fresh profile.
const DefaultUsageFrequency = 5

// ============================================================
// Profile
// ============================================================

// Profile is the user input accumulated by the wizard.
type Profile struct {
	PersonalInfo  PersonalInfo  `json:"personalInfo" yaml:"personalInfo"`
	DigitalHabits DigitalHabits `json:"digitalHabits" yaml:"digitalHabits"`
	Consumption   Consumption   `json:"consumption" yaml:"consumption"`
	Health        Health        `json:"health" yaml:"health"`
	Advanced      Advanced      `json:"advanced" yaml:"advanced"`
}

// PersonalInfo is step 1. Age 0 means "not informed".
type PersonalInfo struct {
	Age      int    `json:"age,omitempty" yaml:"age,omitempty" validate:"omitempty,min=18,max=100"`
	Gender   string `json:"gender,omitempty" yaml:"gender,omitempty" validate:"omitempty,oneof=masculino feminino outro prefiro_nao_dizer"`
	Location string `json:"location,omitempty" yaml:"location,omitempty" validate:"max=120"`
}

// DigitalHabits is step 2.
type DigitalHabits struct {
	SocialNetworks []string `json:"socialNetworks" yaml:"socialNetworks" validate:"omitempty,dive,oneof=instagram facebook linkedin twitter tiktok youtube"`
	UsageFrequency int      `json:"usageFrequency" yaml:"usageFrequency" validate:"omitempty,min=1,max=10"`
}

// Consumption is step 3.
type Consumption struct {
	ShoppingChannels   []string `json:"shoppingChannels" yaml:"shoppingChannels" validate:"omitempty,dive,oneof=lojas_fisicas ecommerce marketplaces redes_sociais apps_delivery"`
	FavoriteCategories []string `json:"favoriteCategories" yaml:"favoriteCategories" validate:"omitempty,dive,oneof=moda_vestuario eletronicos casa_decoracao beleza_cuidados esportes_fitness livros_educacao alimentacao viagem_turismo"`
}

// Health is step 4 (optional).
type Health struct {
	HealthInterests []string `json:"healthInterests" yaml:"healthInterests" validate:"omitempty,dive,oneof=academia_exercicios alimentacao_saudavel suplementos produtos_naturais medicina_alternativa wellness_mindfulness"`
}

// Advanced is step 5.
type Advanced struct {
	IncomeRange      string `json:"incomeRange,omitempty" yaml:"incomeRange,omitempty" validate:"omitempty,oneof=ate_3000 3000_8000 acima_8000 prefiro_nao_informar"`
	ProfessionalArea string `json:"professionalArea,omitempty" yaml:"professionalArea,omitempty" validate:"omitempty,oneof=tecnologia negocios_vendas saude educacao criativo_design outro"`
}

// NewProfile returns a profile with every section empty and the default
// usage frequency set.
func NewProfile() Profile {
	return Profile{
		DigitalHabits: DigitalHabits{UsageFrequency: DefaultUsageFrequency},
	}
}

// Clone returns a deep copy, so callers can hand the profile to another
// goroutine without sharing slices.
func (p Profile) Clone() Profile {
	c := p
	c.DigitalHabits.SocialNetworks = cloneSet(p.DigitalHabits.SocialNetworks)
	c.Consumption.ShoppingChannels = cloneSet(p.Consumption.ShoppingChannels)
	c.Consumption.FavoriteCategories = cloneSet(p.Consumption.FavoriteCategories)
	c.Health.HealthInterests = cloneSet(p.Health.HealthInterests)
	return c
}

// HasAge reports whether an age was informed.
func (p PersonalInfo) HasAge() bool { return p.Age > 0 }

// HasGender reports whether a gender was chosen.
func (p PersonalInfo) HasGender() bool { return strings.TrimSpace(p.Gender) != "" }

// HasLocation reports whether a location was typed.
func (p PersonalInfo) HasLocation() bool { return strings.TrimSpace(p.Location) != "" }

// Contains reports whether id is part of the set.
func Contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// NormalizeSet trims ids, drops blanks and removes duplicates keeping the
// first occurrence.
func NormalizeSet(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneSet(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
