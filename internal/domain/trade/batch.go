package trade

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Batch groups open orders so they can be picked and labelled together
type Batch struct {
	Number   int         `json:"number"`
	OrderIDs []uuid.UUID `json:"order_ids"`
	Items    int         `json:"items"`
}

// BuildBatches splits orders into consecutive batches of at most size orders
func BuildBatches(orders []Order, size int) []Batch {
	if size <= 0 || len(orders) == 0 {
		return []Batch{}
	}
	chunks := lo.Chunk(orders, size)
	batches := make([]Batch, 0, len(chunks))
	for i, chunk := range chunks {
		batches = append(batches, Batch{
			Number:   i + 1,
			OrderIDs: lo.Map(chunk, func(o Order, _ int) uuid.UUID { return o.ID }),
			Items:    lo.SumBy(chunk, func(o Order) int { return o.ItemCount() }),
		})
	}
	return batches
}
