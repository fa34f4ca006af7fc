package partner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddress(t *testing.T) {
	a, err := NewAddress(AddressInput{
		Name:                "Magazijn Noord",
		Street:              "Industrieweg",
		HouseNumber:         "12",
		HouseNumberExtended: "B",
		ZipCode:             "1234 ab",
		City:                "Amsterdam",
	})
	require.NoError(t, err)

	assert.Equal(t, "NL", a.Country)
	assert.Equal(t, "1234AB", a.ZipCode)
	assert.Equal(t, []string{"Magazijn Noord", "Industrieweg 12 B", "1234AB Amsterdam", "NL"}, a.Lines())

	_, err = NewAddress(AddressInput{Name: "x", Street: "y", HouseNumber: "1", ZipCode: "1000AA"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "city")

	_, err = NewAddress(AddressInput{Name: "x", Street: "y", HouseNumber: "1", ZipCode: "1000AA", City: "z", Country: "NLD"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNewFulfiller(t *testing.T) {
	f, err := NewFulfiller(" PostNL Fulfilment ", "ops@postnl.example", "+31 20 000 0000")
	require.NoError(t, err)
	assert.Equal(t, "PostNL Fulfilment", f.Name)

	_, err = NewFulfiller("", "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewFulfiller("X", "not-an-email", "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestSellerAndWarehouse(t *testing.T) {
	addr := uuid.New()
	s, err := NewSeller("Stock It Up BV", &addr)
	require.NoError(t, err)
	assert.Equal(t, &addr, s.AddressID)

	_, err = NewSeller("  ", nil)
	assert.Error(t, err)

	ful := uuid.New()
	w, err := NewWarehouse("Hoofdmagazijn", &addr, &ful)
	require.NoError(t, err)
	require.NoError(t, w.Update("Hoofdmagazijn 2", nil, &ful))
	assert.Nil(t, w.AddressID)
	assert.Equal(t, "Hoofdmagazijn 2", w.Name)
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name    string
		counts  map[OnboardingStep]int64
		step    OnboardingStep
		percent int
		done    bool
	}{
		{"fresh install", map[OnboardingStep]int64{}, StepAddresses, 25, false},
		{"has address", map[OnboardingStep]int64{StepAddresses: 1}, StepSellers, 50, false},
		{"needs fulfiller", map[OnboardingStep]int64{StepAddresses: 1, StepSellers: 2}, StepFulfillers, 75, false},
		{"needs warehouse", map[OnboardingStep]int64{StepAddresses: 1, StepSellers: 1, StepFulfillers: 1}, StepWarehouses, 97, false},
		{"complete", map[OnboardingStep]int64{StepAddresses: 1, StepSellers: 1, StepFulfillers: 1, StepWarehouses: 1}, "", 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeProgress(tt.counts)
			assert.Equal(t, tt.step, p.CurrentStep)
			assert.Equal(t, tt.percent, p.Percent)
			assert.Equal(t, tt.done, p.Completed)
		})
	}
}

func TestParseOnboardingStep(t *testing.T) {
	for in, want := range map[string]OnboardingStep{
		"adressen":   StepAddresses,
		"addresses":  StepAddresses,
		"verkopers":  StepSellers,
		"fulfillers": StepFulfillers,
		"magazijnen": StepWarehouses,
	} {
		got, ok := ParseOnboardingStep(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseOnboardingStep("betalingen")
	assert.False(t, ok)
}

func TestStepPercent(t *testing.T) {
	assert.Equal(t, 25, StepPercent(StepAddresses))
	assert.Equal(t, 50, StepPercent(StepSellers))
	assert.Equal(t, 75, StepPercent(StepFulfillers))
	assert.Equal(t, 97, StepPercent(StepWarehouses))
	assert.Zero(t, StepPercent("betalingen"))
}
