package domain

import "fmt"

// WizardState is the screen the wizard is on.
type WizardState int

const (
	WizardLanding WizardState = iota
	WizardStep1
	WizardStep2
	WizardStep3
	WizardStep4
	WizardStep5
	WizardResult
)

// TotalSteps is the number of data-collection steps.
const TotalSteps = 5

func (s WizardState) String() string {
	switch s {
	case WizardLanding:
		return "LANDING"
	case WizardResult:
		return "RESULT"
	default:
		if s.IsStep() {
			return fmt.Sprintf("STEP_%d", int(s))
		}
		return fmt.Sprintf("WizardState(%d)", int(s))
	}
}

// IsStep reports whether s is one of STEP_1..STEP_5.
func (s WizardState) IsStep() bool {
	return s >= WizardStep1 && s <= WizardStep5
}

// Step returns the 1-based step number, or 0 outside the steps.
func (s WizardState) Step() int {
	if !s.IsStep() {
		return 0
	}
	return int(s)
}

// MarshalText renders the state name in JSON.
func (s WizardState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *WizardState) UnmarshalText(text []byte) error {
	for st := WizardLanding; st <= WizardResult; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown wizard state %q", text)
}

// StepState returns the state of 1-based step n.
func StepState(n int) (WizardState, bool) {
	s := WizardState(n)
	return s, s.IsStep()
}

// StepInfo is the copy shown above each step.
type StepInfo struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// StepInfos lists title and subtitle of each step.
var StepInfos = map[int]StepInfo{
	1: {Number: 1, Title: "Identificação Básica", Subtitle: "Vamos conhecer você melhor"},
	2: {Number: 2, Title: "Hábitos Digitais", Subtitle: "Que redes sociais você usa?"},
	3: {Number: 3, Title: "Consumo e Estilo de Vida", Subtitle: "Como você gosta de comprar?"},
	4: {Number: 4, Title: "Saúde e Bem-estar", Subtitle: "Conte sobre seus hábitos saudáveis"},
	5: {Number: 5, Title: "Dados Avançados", Subtitle: "Últimas informações para calcular seu valor"},
}

// WizardSnapshot is a read-only view of a wizard and its session.
type WizardSnapshot struct {
	ID         string           `json:"id"`
	State      WizardState      `json:"state"`
	Step       *StepInfo        `json:"step,omitempty"`
	Progress   int              `json:"progress"`
	CanProceed bool             `json:"canProceed"`
	LocalOnly  bool             `json:"localOnly"`
	Profile    Profile          `json:"profile"`
	Session    Session          `json:"session"`
	Result     *ValuationResult `json:"result,omitempty"`
}

// WizardCreated is returned when a new wizard is opened.
type WizardCreated struct {
	Token  string         `json:"token"`
	Wizard WizardSnapshot `json:"wizard"`
}
