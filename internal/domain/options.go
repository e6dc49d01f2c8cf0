package domain

// Option is a selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Catalog groups every option list served to the frontend.
type Catalog struct {
	Genders            []Option `json:"genders"`
	SocialNetworks     []Option `json:"socialNetworks"`
	ShoppingChannels   []Option `json:"shoppingChannels"`
	FavoriteCategories []Option `json:"favoriteCategories"`
	HealthInterests    []Option `json:"healthInterests"`
	IncomeRanges       []Option `json:"incomeRanges"`
	ProfessionalAreas  []Option `json:"professionalAreas"`
}

const (
	IncomeUpTo3000      = "ate_3000"
	Income3000To8000    = "3000_8000"
	IncomeAbove8000     = "acima_8000"
	IncomeNotInformed   = "prefiro_nao_informar"
	AreaTechnology      = "tecnologia"
	CategoryElectronics = "eletronicos"
)

var (
	GenderOptions = []Option{
		{Value: "masculino", Label: "Masculino"},
		{Value: "feminino", Label: "Feminino"},
		{Value: "outro", Label: "Outro"},
		{Value: "prefiro_nao_dizer", Label: "Prefiro não dizer"},
	}

	SocialNetworkOptions = []Option{
		{Value: "instagram", Label: "Instagram"},
		{Value: "facebook", Label: "Facebook"},
		{Value: "linkedin", Label: "LinkedIn"},
		{Value: "twitter", Label: "Twitter/X"},
		{Value: "tiktok", Label: "TikTok"},
		{Value: "youtube", Label: "YouTube"},
	}

	ShoppingChannelOptions = []Option{
		{Value: "lojas_fisicas", Label: "Lojas físicas"},
		{Value: "ecommerce", Label: "E-commerce (sites próprios)"},
		{Value: "marketplaces", Label: "Marketplaces (Amazon, Mercado Livre)"},
		{Value: "redes_sociais", Label: "Redes sociais"},
		{Value: "apps_delivery", Label: "Apps de delivery"},
	}

	FavoriteCategoryOptions = []Option{
		{Value: "moda_vestuario", Label: "Moda e Vestuário"},
		{Value: CategoryElectronics, Label: "Eletrônicos"},
		{Value: "casa_decoracao", Label: "Casa e Decoração"},
		{Value: "beleza_cuidados", Label: "Beleza e Cuidados Pessoais"},
		{Value: "esportes_fitness", Label: "Esportes e Fitness"},
		{Value: "livros_educacao", Label: "Livros e Educação"},
		{Value: "alimentacao", Label: "Alimentação"},
		{Value: "viagem_turismo", Label: "Viagem e Turismo"},
	}

	HealthInterestOptions = []Option{
		{Value: "academia_exercicios", Label: "Academia e exercícios"},
		{Value: "alimentacao_saudavel", Label: "Alimentação saudável"},
		{Value: "suplementos", Label: "Suplementos"},
		{Value: "produtos_naturais", Label: "Produtos naturais"},
		{Value: "medicina_alternativa", Label: "Medicina alternativa"},
		{Value: "wellness_mindfulness", Label: "Wellness e mindfulness"},
	}

	IncomeRangeOptions = []Option{
		{Value: IncomeUpTo3000, Label: "Até R$ 3.000"},
		{Value: Income3000To8000, Label: "R$ 3.000 - R$ 8.000"},
		{Value: IncomeAbove8000, Label: "Acima de R$ 8.000"},
		{Value: IncomeNotInformed, Label: "Prefiro não informar"},
	}

	ProfessionalAreaOptions = []Option{
		{Value: AreaTechnology, Label: "Tecnologia"},
		{Value: "negocios_vendas", Label: "Negócios/Vendas"},
		{Value: "saude", Label: "Saúde"},
		{Value: "educacao", Label: "Educação"},
		{Value: "criativo_design", Label: "Criativo/Design"},
		{Value: "outro", Label: "Outro"},
	}
)

// OptionCatalog returns every option list.
func OptionCatalog() Catalog {
	return Catalog{
		Genders:            GenderOptions,
		SocialNetworks:     SocialNetworkOptions,
		ShoppingChannels:   ShoppingChannelOptions,
		FavoriteCategories: FavoriteCategoryOptions,
		HealthInterests:    HealthInterestOptions,
		IncomeRanges:       IncomeRangeOptions,
		ProfessionalAreas:  ProfessionalAreaOptions,
	}
}
