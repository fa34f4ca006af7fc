package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Is(t *testing.T) {
	err := NotFound("Product")

	assert.Equal(t, "Product not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(fmt.Errorf("lookup: %w", err), ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "EUR", false},
		{"eur", "EUR", false},
		{" usd ", "USD", false},
		{"GBP", "GBP", false},
		{"JPY", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeCurrency(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 101, 3, 50)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 3, p.Page)

	empty := NewPaginated[int](nil, 0, 1, 50)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, Filter{Page: 0, PageSize: 50}.Offset())
	assert.Equal(t, 0, Filter{Page: 1, PageSize: 50}.Offset())
	assert.Equal(t, 100, Filter{Page: 3, PageSize: 50}.Offset())
}
