package partner

// OnboardingStep is one page of the welcome flow
type OnboardingStep string

const (
	StepAddresses  OnboardingStep = "addresses"
	StepSellers    OnboardingStep = "sellers"
	StepFulfillers OnboardingStep = "fulfillers"
	StepWarehouses OnboardingStep = "warehouses"
)

// OnboardingSteps lists the welcome flow in order with the progress shown on each page
var OnboardingSteps = []struct {
	Step    OnboardingStep
	Percent int
}{
	{StepAddresses, 25},
	{StepSellers, 50},
	{StepFulfillers, 75},
	{StepWarehouses, 97},
}

// ParseOnboardingStep accepts the English and Dutch page names
func ParseOnboardingStep(s string) (OnboardingStep, bool) {
	switch s {
	case "addresses", "adressen":
		return StepAddresses, true
	case "sellers", "verkopers":
		return StepSellers, true
	case "fulfillers":
		return StepFulfillers, true
	case "warehouses", "magazijnen":
		return StepWarehouses, true
	}
	return "", false
}

// StepPercent returns the progress shown on the page of a step
func StepPercent(step OnboardingStep) int {
	for _, s := range OnboardingSteps {
		if s.Step == step {
			return s.Percent
		}
	}
	return 0
}

// Progress is where a user stands in the welcome flow
type Progress struct {
	CurrentStep OnboardingStep           `json:"current_step,omitempty"`
	Percent     int                      `json:"percent"`
	Completed   bool                     `json:"completed"`
	Counts      map[OnboardingStep]int64 `json:"counts"`
}

// ComputeProgress picks the first step without records as the current step
func ComputeProgress(counts map[OnboardingStep]int64) Progress {
	p := Progress{Counts: counts}
	for _, s := range OnboardingSteps {
		if counts[s.Step] == 0 {
			p.CurrentStep = s.Step
			p.Percent = s.Percent
			return p
		}
	}
	p.Completed = true
	p.Percent = 100
	return p
}
