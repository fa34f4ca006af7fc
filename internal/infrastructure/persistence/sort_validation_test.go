package persistence

import (
	"testing"

	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	cases := map[string]string{
		"":            "DESC",
		"asc":         "ASC",
		" ASC ":       "ASC",
		"desc":        "DESC",
		"upwards":     "DESC",
		"ASC; DELETE": "DESC",
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidateSortOrder(in), "input %q", in)
	}
}

func TestValidateSortField(t *testing.T) {
	t.Run("product listing", func(t *testing.T) {
		assert.Equal(t, "stock_quantity", ValidateSortField("stock_quantity", ProductSortFields, "created_at"))
		assert.Equal(t, "price", ValidateSortField("  price ", ProductSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("", ProductSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("SKU", ProductSortFields, "created_at"), "field names are case sensitive")
		assert.Equal(t, "created_at", ValidateSortField("image_key", ProductSortFields, "created_at"))
	})

	t.Run("order listing", func(t *testing.T) {
		assert.Equal(t, "channel", ValidateSortField("channel", OrderSortFields, "created_at"))
		assert.Equal(t, "total", ValidateSortField("total", OrderSortFields, "created_at"))
		assert.Equal(t, "created_at", ValidateSortField("customer_email", OrderSortFields, "created_at"))
	})

	t.Run("rejects expressions", func(t *testing.T) {
		for _, payload := range []string{
			"total; DROP TABLE orders",
			"reference' OR '1'='1",
			"status, (SELECT password_hash FROM users)",
			"total\n;DELETE FROM products",
			"CASE WHEN 1=1 THEN total END",
		} {
			assert.Equal(t, "created_at", ValidateSortField(payload, OrderSortFields, "created_at"), payload)
		}
	})
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "created_at DESC", orderClause(shared.Filter{}, ProductSortFields, "created_at"))
	assert.Equal(t, "name ASC", orderClause(shared.Filter{OrderBy: "name", OrderDir: "asc"}, ProductSortFields, "created_at"))
	assert.Equal(t, "total DESC", orderClause(shared.Filter{OrderBy: "total"}, OrderSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause(shared.Filter{OrderBy: "password_hash"}, ProductSortFields, "created_at"))
}
